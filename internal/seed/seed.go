// Package seed loads offers from JSON-lines files at startup.
package seed

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/xenking/cart-offer/internal/domain/offer"
	"github.com/xenking/cart-offer/internal/wire"
)

const maxLineBytes = 1 << 20

// Adder receives decoded offers in file order.
type Adder interface {
	Add(o offer.Offer) offer.Offer
}

// LineError reports the line of the seed file that could not be loaded.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return "line " + strconv.Itoa(e.Line) + ": " + e.Err.Error()
}

func (e *LineError) Unwrap() error { return e.Err }

// LoadFile reads offers from path and adds them to dst. Files ending in .gz
// are decompressed. It returns the number of offers added.
func LoadFile(ctx context.Context, path string, dst Adder) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open seed file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return 0, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	n, err := Load(ctx, r, dst)
	if err != nil {
		return n, errors.Wrapf(err, "load %s", path)
	}
	zctx.From(ctx).Info("Seed offers loaded", zap.String("path", path), zap.Int("count", n))
	return n, nil
}

// Load reads one offer per line from r and adds each to dst. Blank lines are
// skipped. Loading stops at the first invalid line; offers before it remain
// added.
func Load(ctx context.Context, r io.Reader, dst Adder) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	var (
		line  int
		added int
	)
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return added, err
		}

		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}

		var req wire.OfferRequest
		if err := req.Decode(jx.DecodeBytes(b)); err != nil {
			return added, &LineError{Line: line, Err: err}
		}
		o, err := req.Offer()
		if err != nil {
			return added, &LineError{Line: line, Err: err}
		}
		dst.Add(o)
		added++
	}
	if err := sc.Err(); err != nil {
		return added, errors.Wrap(err, "scan")
	}
	return added, nil
}
