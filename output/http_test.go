package output

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nicwaller/gelf/framing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method  string
	path    string
	headers http.Header
	body    []byte
}

func captureServer(t *testing.T, status int) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()
	reqs := make(chan capturedRequest, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqs <- capturedRequest{
			method:  r.Method,
			path:    r.URL.Path,
			headers: r.Header.Clone(),
			body:    body,
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, reqs
}

func TestHTTPPost(t *testing.T) {
	srv, reqs := captureServer(t, http.StatusAccepted)
	out, err := HTTP(HTTPOptions{
		URL:     srv.URL + "/gelf",
		Headers: map[string]string{"X-Token": "secret"},
	})
	require.NoError(t, err)
	defer out.Close()

	payload := []byte(`{"short_message":"hello"}`)
	require.NoError(t, out.Send(context.Background(), payload))

	r := <-reqs
	assert.Equal(t, http.MethodPost, r.method)
	assert.Equal(t, "/gelf", r.path)
	assert.Equal(t, "application/json", r.headers.Get("Content-Type"))
	assert.Empty(t, r.headers.Get("Content-Encoding"))
	assert.Equal(t, "secret", r.headers.Get("X-Token"))
	assert.Equal(t, payload, r.body)
}

func TestHTTPCompressed(t *testing.T) {
	srv, reqs := captureServer(t, http.StatusAccepted)
	out, err := HTTP(HTTPOptions{URL: srv.URL, Compress: true})
	require.NoError(t, err)
	defer out.Close()
	assert.True(t, out.Compressed())

	payload := framing.Zlib([]byte(`{"short_message":"hello"}`))
	require.NoError(t, out.Send(context.Background(), payload))

	r := <-reqs
	assert.Equal(t, "deflate", r.headers.Get("Content-Encoding"))
	plain, err := framing.Decompress(r.body)
	require.NoError(t, err)
	assert.Equal(t, `{"short_message":"hello"}`, string(plain))
}

func TestHTTPRejected(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadRequest)
	out, err := HTTP(HTTPOptions{URL: srv.URL})
	require.NoError(t, err)
	defer out.Close()
	assert.Error(t, out.Send(context.Background(), []byte("{}")))
}

func TestHTTPEndpoint(t *testing.T) {
	got, err := HTTPOptions{Host: "graylog"}.endpoint()
	require.NoError(t, err)
	assert.Equal(t, "http://graylog:12203/gelf", got)

	got, err = HTTPOptions{Host: "graylog", Port: 8080, Path: "/in"}.endpoint()
	require.NoError(t, err)
	assert.Equal(t, "http://graylog:8080/in", got)

	_, err = HTTPOptions{URL: "ftp://graylog"}.endpoint()
	assert.Error(t, err)
}
