package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/qrpop/qr"
	"github.com/openclaw/qrpop/store"
)

func newTestServer(t *testing.T, withHistory bool) (*Server, http.Handler) {
	t.Helper()
	s := &Server{
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Version: "test",
	}
	if withHistory {
		h, err := store.NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { h.Close() })
		s.History = h
	}
	return s, NewRouter(s)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQRImage_Get(t *testing.T) {
	_, h := newTestServer(t, false)

	rec := do(t, h, http.MethodGet, "/qr.png?text="+url.QueryEscape("hello world"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestQRImage_Post(t *testing.T) {
	_, h := newTestServer(t, false)

	rec := do(t, h, http.MethodPost, "/qr", `{"text":"生成二维码"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := png.Decode(rec.Body)
	assert.NoError(t, err)
}

func TestQRImage_Errors(t *testing.T) {
	_, h := newTestServer(t, false)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"empty query", http.MethodGet, "/qr.png", "", http.StatusBadRequest},
		{"bad json", http.MethodPost, "/qr", "{", http.StatusBadRequest},
		{"empty text", http.MethodPost, "/qr", `{"text":""}`, http.StatusBadRequest},
		{"too long", http.MethodGet, "/qr.png?text=" + strings.Repeat("a", qr.MaxPayload+1), "", http.StatusBadRequest},
		{"invalid utf8", http.MethodGet, "/qr.png?text=%ff%fe", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestQRData(t *testing.T) {
	_, h := newTestServer(t, true)

	rec := do(t, h, http.MethodPost, "/qr/data", `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Contains(t, raw, "png")
	assert.NotContains(t, raw, "qr_png")

	var resp qrDataResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "high", resp.Level)
	assert.Equal(t, 1, resp.Version)
	assert.Equal(t, 21, resp.Modules)
	assert.NotEmpty(t, resp.ID)

	data, err := base64.StdEncoding.DecodeString(resp.PNG)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, resp.Size, img.Bounds().Dx())
}

func TestHistoryEndpoints(t *testing.T) {
	_, h := newTestServer(t, true)

	for _, text := range []string{"alpha link", "beta notes"} {
		rec := do(t, h, http.MethodPost, "/qr/data", `{"text":"`+text+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var gens []store.Generation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gens))
	require.Len(t, gens, 2)
	assert.Equal(t, "api", gens[0].Source)

	rec = do(t, h, http.MethodGet, "/history/search?q=beta", "")
	require.Equal(t, http.StatusOK, rec.Code)
	gens = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gens))
	require.Len(t, gens, 1)
	assert.Equal(t, "beta notes", gens[0].Text)

	rec = do(t, h, http.MethodGet, "/history/"+gens[0].ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/history/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/history/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryDisabled(t *testing.T) {
	_, h := newTestServer(t, false)

	rec := do(t, h, http.MethodGet, "/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatus(t *testing.T) {
	_, h := newTestServer(t, true)

	rec := do(t, h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.True(t, resp.History)
}

func TestPage(t *testing.T) {
	_, h := newTestServer(t, false)

	rec := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/qr/data")
}

func TestCORSPreflight(t *testing.T) {
	_, h := newTestServer(t, false)

	rec := do(t, h, http.MethodOptions, "/qr", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
