package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blend-lens/internal/blendtest"
	"blend-lens/pkg/printer"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sampleFile() []byte {
	b := blendtest.New(4, true)
	b.Primitives()
	foo := b.Struct("Foo", 8, blendtest.F("int", "a"), blendtest.F("Foo", "*next"))
	b.Block("DATA", foo, 1, b.Payload().I32(-5).Ptr(0x40).Bytes())
	return b.Bytes()
}

func decode(t *testing.T, query string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	r := newRouter(printer.DefaultOptions())
	req := httptest.NewRequest(http.MethodPost, "/api/decode"+query, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/octet-stream")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	OK    bool `json:"ok"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestHealth(t *testing.T) {
	r := newRouter(printer.DefaultOptions())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestDecodeXML(t *testing.T) {
	w := decode(t, "", sampleFile())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/xml"))

	body := w.Body.String()
	assert.Contains(t, body, `pointer-size="4"`)
	assert.Contains(t, body, `endianness="V"`)
	assert.Contains(t, body, `<a type="int">-5</a>`)
	assert.Contains(t, body, `<next type="Foo*">0xDEADBEEF</next>`)
	assert.Contains(t, body, "<types>")
}

func TestDecodeQueryOptions(t *testing.T) {
	w := decode(t, "?types=false&raw_pointers=1&digest=true", sampleFile())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := w.Body.String()
	assert.NotContains(t, body, "<types>")
	assert.Contains(t, body, `<next type="Foo*">0x40</next>`)
	assert.Contains(t, body, `digest="`)

	w = decode(t, "?data=false", sampleFile())
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<DATA")
}

func TestDecodeJSON(t *testing.T) {
	w := decode(t, "?format=json&types=false", sampleFile())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var root printer.Node
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &root))
	assert.Equal(t, "blend", root.Name)
	data := root.Child("DATA")
	require.NotNil(t, data)
	assert.Equal(t, "Foo", data.Attrs["sdna"])
	assert.Equal(t, "-5", data.Child("a").Text)
}

func TestDecodeErrors(t *testing.T) {
	w := decode(t, "?digest=perhaps", sampleFile())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.OK)
	assert.Equal(t, "INVALID_QUERY", body.Error.Code)

	w = decode(t, "", []byte("PK\x03\x04 not a blend file"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "UNSUPPORTED_FORMAT", body.Error.Code)

	full := sampleFile()
	w = decode(t, "?format=json", full[:len(full)-40])
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "TRUNCATED", body.Error.Code)
}

func TestCORS(t *testing.T) {
	r := newRouter(printer.DefaultOptions())
	req := httptest.NewRequest(http.MethodOptions, "/api/decode", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestFallbackPage(t *testing.T) {
	r := newRouter(printer.DefaultOptions())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/decode")
}
