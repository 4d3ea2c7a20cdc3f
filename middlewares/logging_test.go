package middlewares_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/internal"
	"github.com/dmitrymomot/expanse/middlewares"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) records(t *testing.T, msg string) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["msg"] == msg {
			out = append(out, rec)
		}
	}
	return out
}

func TestAccessLog(t *testing.T) {
	t.Parallel()

	newApp := func(t *testing.T, buf *syncBuffer, opts ...middlewares.AccessLogOption) *internal.App {
		log := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		return newTestApp(t, func(r internal.Router) {
			r.GET("/users/{id:int}", ok, internal.Name("users.show"))
			r.GET("/boom", func() error { return internal.ErrInternal("down") })
			r.GET("/healthz", ok)
		},
			internal.WithLogger(log),
			internal.WithMiddleware(middlewares.RequestID(), middlewares.AccessLog(opts...)),
		)
	}

	t.Run("logs request details", func(t *testing.T) {
		t.Parallel()

		var buf syncBuffer
		app := newApp(t, &buf)
		get(app, "/users/7?full=1", "X-Request-ID", "rid-1")

		recs := buf.records(t, "request")
		require.Len(t, recs, 1)
		rec := recs[0]
		require.Equal(t, "INFO", rec["level"])
		require.Equal(t, "GET", rec["method"])
		require.Equal(t, "/users/7", rec["path"])
		require.Equal(t, "users.show", rec["route"])
		require.Equal(t, "full=1", rec["query"])
		require.Equal(t, "rid-1", rec["request_id"])
		require.EqualValues(t, 200, rec["status"])
	})

	t.Run("errors log at error level with rendered status", func(t *testing.T) {
		t.Parallel()

		var buf syncBuffer
		app := newApp(t, &buf)
		get(app, "/boom")

		var found bool
		for _, rec := range buf.records(t, "request") {
			if rec["path"] == "/boom" {
				found = true
				require.Equal(t, "ERROR", rec["level"])
				require.EqualValues(t, 500, rec["status"])
				require.NotEmpty(t, rec["error"])
			}
		}
		require.True(t, found)
	})

	t.Run("skip and header redaction", func(t *testing.T) {
		t.Parallel()

		var buf syncBuffer
		app := newApp(t, &buf,
			middlewares.WithAccessLogSkip(func(c internal.Context) bool { return c.Request().URL.Path == "/healthz" }),
			middlewares.WithAccessLogHeaders(),
		)
		get(app, "/healthz")
		get(app, "/users/1", "Authorization", "Bearer secret", "X-Client", "cli")

		recs := buf.records(t, "request")
		require.Len(t, recs, 1)
		headers := recs[0]["headers"].(map[string]any)
		require.Equal(t, "[REDACTED]", headers["Authorization"])
		require.Equal(t, "cli", headers["X-Client"])
	})

	t.Run("unmatched paths are logged as 404", func(t *testing.T) {
		t.Parallel()

		var buf syncBuffer
		app := newApp(t, &buf)
		require.Equal(t, http.StatusNotFound, get(app, "/nope").Code)

		recs := buf.records(t, "request")
		require.Len(t, recs, 1)
		require.EqualValues(t, 404, recs[0]["status"])
	})
}
