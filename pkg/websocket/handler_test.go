package websocket

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckOrigin(t *testing.T) {
	handler := NewHandler(NewHub(testLogger()), []string{"https://app.ambulink.example"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, handler.checkOrigin(req), "non-browser clients send no Origin header")

	req.Header.Set("Origin", "https://app.ambulink.example")
	assert.True(t, handler.checkOrigin(req))

	req.Header.Set("Origin", "https://APP.AMBULINK.EXAMPLE")
	assert.True(t, handler.checkOrigin(req), "origin comparison is case-insensitive")

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, handler.checkOrigin(req))

	wildcard := NewHandler(NewHub(testLogger()), []string{"*"})
	req.Header.Set("Origin", "https://anywhere.example")
	assert.True(t, wildcard.checkOrigin(req))
}
