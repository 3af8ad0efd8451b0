package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type closeTrackingBody struct {
	io.Reader
	closed bool
}

func (b *closeTrackingBody) Close() error {
	b.closed = true
	return nil
}

func TestRequestBody_DrainsAndCloses(t *testing.T) {
	body := &closeTrackingBody{Reader: strings.NewReader("some body the handler ignores")}
	req := httptest.NewRequest("POST", "/api/order", nil)
	req.Body = body

	handler := RequestBody(DefaultMaxRequestBodyBytes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, body.closed)
	rest, _ := io.ReadAll(body.Reader)
	assert.Empty(t, rest)
}

func TestRequestBody_Limit(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/order", strings.NewReader(strings.Repeat("a", 20)))

	var readErr error
	var read int
	handler := RequestBody(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b []byte
		b, readErr = io.ReadAll(r.Body)
		read = len(b)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Error(t, readErr)
	assert.Equal(t, 10, read)
}
