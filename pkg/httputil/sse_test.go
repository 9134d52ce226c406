package httputil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEWriter_Framing(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, sse.Data("Hel"))
	require.NoError(t, sse.Data("lo"))
	require.NoError(t, sse.Event("sources", []map[string]string{{"title": "First", "url": "https://a.example"}}))
	require.NoError(t, sse.Done())

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.Equal(t, 200, rec.Code)

	want := "data: \"Hel\"\n\n" +
		"data: \"lo\"\n\n" +
		"event: sources\ndata: [{\"title\":\"First\",\"url\":\"https://a.example\"}]\n\n" +
		"data: [DONE]\n\n"
	assert.Equal(t, want, rec.Body.String())
}

func TestSSEWriter_DoneIsNotJSONEncoded(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, sse.Done())
	// The terminal sentinel is the literal string, not the JSON "[DONE]".
	assert.Equal(t, "data: [DONE]\n\n", rec.Body.String())
}
