// Package segment resolves users to customer segments through the external
// segmentation service.
package segment

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Unknown is the segment assigned to users whose segment cannot be resolved.
const Unknown = "unknown"

const (
	lookupPath   = "/api/v1/user_segment"
	maxBodyBytes = 64 << 10
)

// ErrNoSegment is returned when the service response has no segment field.
var ErrNoSegment = errors.New("segment missing in response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.StatusCode)
}

// Cache stores resolved segments. A miss is reported as ok == false.
type Cache interface {
	Get(ctx context.Context, userID int64) (segment string, ok bool, err error)
	Set(ctx context.Context, userID int64, segment string) error
}

// Config configures the segmentation service client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithCache enables caching of successfully resolved segments.
func WithCache(c Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithTelemetry instruments outbound requests.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(cl *Client) {
		cl.http.Transport = otelhttp.NewTransport(cl.http.Transport,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithMeterProvider(mp),
		)
	}
}

// Client calls the segmentation service. Concurrent lookups of the same user
// share a single request.
type Client struct {
	base  *url.URL
	http  *http.Client
	cache Cache
	group singleflight.Group
}

// NewClient creates a Client for the service at cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse segment service url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("segment service url %q must be absolute", cfg.BaseURL)
	}

	c := &Client{
		base: base,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: http.DefaultTransport,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Resolve returns the user's segment, or Unknown when the lookup fails for
// any reason. Failures are logged and never returned.
func (c *Client) Resolve(ctx context.Context, userID int64) string {
	lg := zctx.From(ctx).With(zap.Int64("user_id", userID))

	if c.cache != nil {
		s, ok, err := c.cache.Get(ctx, userID)
		switch {
		case err != nil:
			lg.Warn("Segment cache read failed", zap.Error(err))
		case ok:
			return s
		}
	}

	s, err := c.lookupShared(ctx, userID)
	if err != nil {
		lg.Warn("Segment lookup failed, using fallback", zap.Error(err), zap.String("segment", Unknown))
		return Unknown
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, userID, s); err != nil {
			lg.Warn("Segment cache write failed", zap.Error(err))
		}
	}
	return s
}

// lookupShared joins or starts the in-flight lookup for the user. The shared
// request is detached from the caller's cancellation and bounded by the client
// timeout, so one caller going away does not fail the others. Each caller
// still stops waiting when its own ctx is done.
func (c *Client) lookupShared(ctx context.Context, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ch := c.group.DoChan(strconv.FormatInt(userID, 10), func() (any, error) {
		return c.Lookup(context.WithoutCancel(ctx), userID)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Lookup performs a single request to the segmentation service.
func (c *Client) Lookup(ctx context.Context, userID int64) (string, error) {
	u := c.base.JoinPath(lookupPath)
	u.RawQuery = url.Values{"user_id": {strconv.FormatInt(userID, 10)}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errors.Wrap(err, "read body")
	}
	return decodeSegment(body)
}

// decodeSegment extracts the segment field from {"segment": "..."}.
func decodeSegment(body []byte) (string, error) {
	var (
		segment string
		found   bool
	)
	d := jx.DecodeBytes(body)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "segment" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		s, err := d.Str()
		if err != nil {
			return errors.Wrap(err, "segment")
		}
		segment, found = s, true
		return nil
	}); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	if !found {
		return "", ErrNoSegment
	}
	return segment, nil
}
