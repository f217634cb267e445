//go:build integration

package segment

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startContainer runs image and returns host:port for the exposed port.
func startContainer(t *testing.T, image, port string, strategy wait.Strategy) string {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{port},
			WaitingFor:   strategy,
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, port)
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

// expectSegment registers a MockServer expectation answering user_id with segment.
func expectSegment(t *testing.T, mockURL string, userID int64, segment string) {
	t.Helper()

	body := fmt.Sprintf(`{
		"httpRequest": {
			"method": "GET",
			"path": %q,
			"queryStringParameters": {"user_id": ["%d"]}
		},
		"httpResponse": {
			"statusCode": 200,
			"headers": {"Content-Type": ["application/json"]},
			"body": "{\"segment\":\"%s\"}"
		}
	}`, lookupPath, userID, segment)

	req, err := http.NewRequest(http.MethodPut, mockURL+"/mockserver/expectation", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestIntegration_MockServer(t *testing.T) {
	addr := startContainer(t, "mockserver/mockserver:5.15.0", "1080/tcp",
		wait.ForHTTP("/mockserver/status").WithPort("1080/tcp").WithMethod(http.MethodPut).WithStartupTimeout(2*time.Minute))
	mockURL := "http://" + addr

	expectSegment(t, mockURL, 1, "p1")
	expectSegment(t, mockURL, 2, "p2")

	c, err := NewClient(Config{BaseURL: mockURL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, "p1", c.Resolve(ctx, 1))
	assert.Equal(t, "p2", c.Resolve(ctx, 2))
	// MockServer answers unmatched requests with 404.
	assert.Equal(t, Unknown, c.Resolve(ctx, 3))
}

func TestIntegration_RedisCache(t *testing.T) {
	addr := startContainer(t, "redis:7-alpine", "6379/tcp", wait.ForLog("Ready to accept connections"))

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := NewRedisCache(rdb, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, 1, "p1"))

	s, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "p1", s)

	ttl, err := rdb.TTL(ctx, fmt.Sprintf(keyUserSegment, 1)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
