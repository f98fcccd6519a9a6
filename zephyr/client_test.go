package zephyr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name     string
		baseURL  string
		username string
		wantErr  bool
		errMsg   string
	}{
		{
			name:     "valid config",
			baseURL:  "https://jira.example.com/",
			username: "tester",
		},
		{
			name:     "missing URL",
			username: "tester",
			wantErr:  true,
			errMsg:   "zephyr URL is required",
		},
		{
			name:    "missing username",
			baseURL: "https://jira.example.com",
			wantErr: true,
			errMsg:  "zephyr username is required",
		},
		{
			name:     "relative URL",
			baseURL:  "jira.example.com",
			username: "tester",
			wantErr:  true,
			errMsg:   "invalid zephyr URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.baseURL, tt.username, "secret", logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://jira.example.com", client.baseURL)
			assert.Equal(t, DefaultAPISuffix, client.apiSuffix)
			assert.Equal(t, DefaultMaxRetries, client.retrying.RetryMax)
			assert.Equal(t, 0, client.single.RetryMax)
		})
	}
}

func TestClientOptions(t *testing.T) {
	client, err := NewClient("https://jira.example.com", "tester", "secret", zerolog.Nop(),
		WithAPISuffix("/custom/api/"),
		WithTimeout(5*time.Second),
		WithMaxRetries(2),
		WithUserAgent("zfr-test"))
	require.NoError(t, err)

	assert.Equal(t, "custom/api", client.apiSuffix)
	assert.Equal(t, 2, client.retrying.RetryMax)
	assert.Equal(t, 5*time.Second, client.retrying.HTTPClient.Timeout)
	assert.Equal(t, "zfr-test", client.userAgent)
	assert.Equal(t, "https://jira.example.com/custom/api/testplan/ABC-P1?fields=key",
		client.endpointURL("testplan/ABC-P1", map[string][]string{"fields": {"key"}}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{
		WithHTTPClient(server.Client()),
		WithBackoffFactor(time.Millisecond),
	}, opts...)

	client, err := NewClient(server.URL, "tester", "secret", zerolog.Nop(), opts...)
	require.NoError(t, err)
	return client
}

func TestClient_Do(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/atm/1.0/testplan/ABC-P1", r.URL.Path)
		assert.Equal(t, "key,name", r.URL.Query().Get("fields"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "zfr", r.Header.Get("User-Agent"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "tester", user)
		assert.Equal(t, "secret", pass)

		w.Write([]byte(`{"key":"ABC-P1"}`))
	})

	resp, err := client.get(context.Background(), "testplan/ABC-P1", map[string][]string{"fields": {"key,name"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ClassOK, resp.Class())
	assert.JSONEq(t, `{"key":"ABC-P1"}`, string(resp.Body))
}

func TestClient_RetriesIdempotentRequests(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	})

	resp, err := client.get(context.Background(), "testplan/ABC-P1/attachments", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}, WithMaxRetries(2))

	_, err := client.delete(context.Background(), "testplan/ABC-P1")
	require.Error(t, err)

	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusBadGateway, remoteErr.StatusCode)
	assert.True(t, remoteErr.IsServerError())
	assert.Contains(t, err.Error(), "upstream down")
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryPost(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.postJSON(context.Background(), "testplan/", map[string]any{"projectKey": "ABC"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RetryOnlyConfiguredStatuses(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithRetryStatuses(http.StatusBadGateway))

	_, err := client.get(context.Background(), "testplan/ABC-P1", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.get(ctx, "testplan/ABC-P1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_ResponseInspection(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantAuth   bool
		wantRemote bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "created", status: http.StatusCreated},
		{name: "bad request is left to the caller", status: http.StatusBadRequest},
		{name: "unauthorized", status: http.StatusUnauthorized, wantAuth: true},
		{name: "forbidden", status: http.StatusForbidden, wantAuth: true},
		{name: "not found is left to the caller", status: http.StatusNotFound},
		{name: "method not allowed", status: http.StatusMethodNotAllowed, wantRemote: true},
		{name: "conflict", status: http.StatusConflict, wantRemote: true},
		{name: "server error", status: http.StatusInternalServerError, wantRemote: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}, WithMaxRetries(0))

			resp, err := client.get(context.Background(), "testplan/ABC-P1", nil)
			switch {
			case tt.wantAuth:
				require.Error(t, err)
				assert.True(t, IsUnauthorized(err))
			case tt.wantRemote:
				var remoteErr *RemoteError
				require.True(t, errors.As(err, &remoteErr))
				assert.Equal(t, tt.status, remoteErr.StatusCode)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.status, resp.StatusCode)
			}
		})
	}
}

func TestResponse_Class(t *testing.T) {
	tests := []struct {
		status int
		want   Class
	}{
		{http.StatusOK, ClassOK},
		{http.StatusNoContent, ClassOK},
		{http.StatusNotFound, ClassNotFound},
		{http.StatusBadRequest, ClassClientError},
		{http.StatusConflict, ClassClientError},
		{http.StatusBadGateway, ClassServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			r := &Response{StatusCode: tt.status}
			assert.Equal(t, tt.want, r.Class())
		})
	}
}

func TestResponse_ErrorMessages(t *testing.T) {
	r := &Response{Body: []byte(`{"errorMessages":["first","second"]}`)}
	assert.Equal(t, []string{"first", "second"}, r.ErrorMessages())

	r = &Response{Body: []byte("  plain failure\n")}
	assert.Equal(t, []string{"plain failure"}, r.ErrorMessages())

	r = &Response{}
	assert.Empty(t, r.ErrorMessages())
}

func TestExponentialBackoff(t *testing.T) {
	backoff := exponentialBackoff(100 * time.Millisecond)

	assert.Equal(t, 100*time.Millisecond, backoff(0, maxBackoff, 0, nil))
	assert.Equal(t, 200*time.Millisecond, backoff(0, maxBackoff, 1, nil))
	assert.Equal(t, 800*time.Millisecond, backoff(0, maxBackoff, 3, nil))
	assert.Equal(t, maxBackoff, backoff(0, maxBackoff, 20, nil))
	assert.Equal(t, maxBackoff, backoff(0, maxBackoff, 64, nil))
}

func TestIsIdempotent(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodHead} {
		assert.True(t, isIdempotent(method), method)
	}
	assert.False(t, isIdempotent(http.MethodPost))
	assert.False(t, isIdempotent(http.MethodPatch))
}
