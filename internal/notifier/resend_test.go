package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/kovalyov-valentin/intelligence-brief/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redirect sends every request to the test server regardless of host.
type redirect struct {
	target *url.URL
}

func (r redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newResendServer(t *testing.T, status int, got *map[string]any) *http.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))

		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"id":"email_123"}`))
			return
		}
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid from field"}`))
	}))
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	return &http.Client{Transport: redirect{target: target}}
}

func TestResendMailer_Send(t *testing.T) {
	var got map[string]any
	client := newResendServer(t, http.StatusOK, &got)

	m := NewResendMailer("re_test", "Brief <brief@example.com>", client, logging.Discard())

	require.NoError(t, m.Send(context.Background(), testMessage))
	assert.Equal(t, "Brief <brief@example.com>", got["from"])
	assert.Equal(t, []any{"reader@example.com"}, got["to"])
	assert.Equal(t, testMessage.Subject, got["subject"])
	assert.Equal(t, testMessage.HTML, got["html"])
	assert.Equal(t, testMessage.Text, got["text"])
}

func TestResendMailer_SendError(t *testing.T) {
	client := newResendServer(t, http.StatusUnprocessableEntity, nil)

	m := NewResendMailer("re_test", "bad", client, logging.Discard())

	err := m.Send(context.Background(), testMessage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send email via resend")
}
