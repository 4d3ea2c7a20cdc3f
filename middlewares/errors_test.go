package middlewares_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/internal"
	"github.com/dmitrymomot/expanse/middlewares"
)

func TestTimeoutError(t *testing.T) {
	t.Parallel()

	err := &middlewares.TimeoutError{Duration: 2 * time.Second}
	require.Equal(t, "request timeout after 2s", err.Error())
	require.Equal(t, http.StatusServiceUnavailable, err.StatusCode())
	require.Equal(t, http.StatusServiceUnavailable, internal.StatusOf(err))
	require.ErrorIs(t, err, internal.ErrTimeout)

	wrapped := fmt.Errorf("handler: %w", err)
	require.True(t, middlewares.IsTimeoutError(wrapped))
	te, ok := middlewares.AsTimeoutError(wrapped)
	require.True(t, ok)
	require.Equal(t, 2*time.Second, te.Duration)

	require.False(t, middlewares.IsTimeoutError(errors.New("other")))
	_, ok = middlewares.AsTimeoutError(nil)
	require.False(t, ok)
}
