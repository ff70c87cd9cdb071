package remote

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Multiply(t *testing.T) {
	got, err := Local{}.Multiply(context.Background(), 3, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(12), got)
}

func TestLocal_Overflow(t *testing.T) {
	tests := []struct {
		a, b     int64
		overflow bool
	}{
		{a: 1e10, b: 1e10, overflow: true},
		{a: math.MaxInt64, b: 2, overflow: true},
		{a: math.MinInt64, b: -1, overflow: true},
		{a: -1, b: math.MinInt64, overflow: true},
		{a: math.MinInt64, b: 1},
		{a: math.MaxInt64, b: -1},
		{a: 3037000499, b: 3037000499},
		{a: 0, b: math.MinInt64},
	}

	for _, tt := range tests {
		got, err := Local{}.Multiply(context.Background(), tt.a, tt.b)
		if tt.overflow {
			assert.ErrorIs(t, err, ErrOverflow, "multiply(%d,%d) = %d", tt.a, tt.b, got)
			continue
		}
		require.NoError(t, err, "multiply(%d,%d)", tt.a, tt.b)
		assert.Equal(t, tt.a*tt.b, got)
	}
}

func TestClient_OverflowIsNotUnavailable(t *testing.T) {
	srv := httptest.NewServer(NewWorker(Local{}, nil).Handler())
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Multiply(context.Background(), 1e10, 1e10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverflow)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestLocal_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Local{}.Multiply(ctx, 3, 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_RoundTripMatchesLocal(t *testing.T) {
	srv := httptest.NewServer(NewWorker(Local{}, nil).Handler())
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	pairs := [][2]int64{{3, 4}, {7, 2}, {-5, 6}, {0, 99}}
	for _, p := range pairs {
		local, err := Local{}.Multiply(context.Background(), p[0], p[1])
		require.NoError(t, err)

		remote, err := client.Multiply(context.Background(), p[0], p[1])
		require.NoError(t, err)
		assert.Equal(t, local, remote, "multiply(%d,%d)", p[0], p[1])
	}
}

func TestClient_SendsRequestID(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
		w.Write([]byte(`{"product":12}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Multiply(context.Background(), 3, 4)
	require.NoError(t, err)
	assert.Len(t, seen, 36)
}

func TestClient_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
			timeout: 20 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			timeout := tt.timeout
			if timeout == 0 {
				timeout = time.Second
			}
			_, err := NewClient(srv.URL, timeout).Multiply(context.Background(), 3, 4)
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, time.Second)
	_, err := client.Multiply(context.Background(), 3, 4)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, client.Health(context.Background()), ErrUnavailable)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("http://worker:8081/", 0)
	assert.Equal(t, "http://worker:8081", c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}

func TestWorker_BadRequest(t *testing.T) {
	srv := httptest.NewServer(NewWorker(nil, nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/multiply", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type failingMultiplier struct{}

func (failingMultiplier) Multiply(ctx context.Context, a, b int64) (int64, error) {
	return 0, errors.New("worker out of memory")
}

func TestWorker_MultiplierError(t *testing.T) {
	srv := httptest.NewServer(NewWorker(failingMultiplier{}, nil).Handler())
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Multiply(context.Background(), 3, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestWorker_Health(t *testing.T) {
	srv := httptest.NewServer(NewWorker(nil, nil).Handler())
	defer srv.Close()

	assert.NoError(t, NewClient(srv.URL, time.Second).Health(context.Background()))
}
