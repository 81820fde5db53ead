package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrubd-io/scrubd/internal/classifier"
	"github.com/scrubd-io/scrubd/internal/extract"
	"github.com/scrubd-io/scrubd/internal/pipeline"
	"github.com/scrubd-io/scrubd/internal/risk"
)

func newTestServer(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	engine := pipeline.New(classifier.MustNewScanner(), risk.NewDefaultScorer(), nil)
	return NewServer(engine, extract.NewExtractor(1), opts...).Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/health?detail=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	components := body["components"].(map[string]interface{})
	assert.Equal(t, "absent", components["nlp"])
	assert.Equal(t, "disabled", components["audit"])
}

func TestDetectEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/detect", map[string]interface{}{
		"text": "Email me at jane@company.com or call +91 9876543210",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	entities := body["entities"].([]interface{})
	assert.Len(t, entities, 2)
	riskBody := body["risk"].(map[string]interface{})
	assert.Equal(t, "medium", riskBody["bucket"])
	assert.Equal(t, "regex", body["mode"])
	assert.Equal(t, false, body["nlp"])
}

func TestDetectRejectsEmptyText(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/detect", map[string]interface{}{"text": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decode(t, rec)["error"])
}

func TestDetectRejectsUnknownMode(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/detect", map[string]interface{}{
		"text": "x", "mode": "quantum",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaskEndpointMaskTypes(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/mask", map[string]interface{}{
		"text":      "Email me at jane@company.com or call +91 9876543210",
		"masking":   "partial",
		"maskTypes": []string{"email"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	masked := body["masked"].(string)
	assert.NotContains(t, masked, "jane@company.com")
	assert.Contains(t, masked, "9876543210")
	assert.Equal(t, "partial", body["masking"])
}

func TestMaskRejectsUnknownMaskingMode(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/mask", map[string]interface{}{
		"text": "x", "masking": "rot13",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatternsEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/patterns", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	recognizers := body["recognizers"].([]interface{})
	assert.NotEmpty(t, recognizers)
	first := recognizers[0].(map[string]interface{})
	assert.NotEmpty(t, first["name"])
	assert.NotEmpty(t, first["label"])
}

func TestAuthRequired(t *testing.T) {
	h := newTestServer(t, WithAPIKeys([]string{"secret-key"}))

	rec := doJSON(t, h, http.MethodPost, "/api/detect", map[string]interface{}{"text": "x"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/detect", strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Scrubd-Key", "secret-key")
	out := httptest.NewRecorder()
	h.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/detect", strings.NewReader(`{"text":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret-key")
	out = httptest.NewRecorder()
	h.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)

	// health stays open
	rec = doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, WithRateLimiter(NewRateLimiter(1, 1)))

	first := doJSON(t, h, http.MethodPost, "/api/detect", map[string]interface{}{"text": "hello"})
	require.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, h, http.MethodPost, "/api/detect", map[string]interface{}{"text": "hello"})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
}

func TestDetectFileUpload(t *testing.T) {
	h := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "note.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("reach me at jane@company.com"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/detect", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	entities := body["entities"].([]interface{})
	require.Len(t, entities, 1)
}

func TestMaskFileUploadFormOptions(t *testing.T) {
	h := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "note.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("reach jane@company.com or call +91 9876543210"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("masking", "partial"))
	require.NoError(t, mw.WriteField("maskTypes", "email, phone"))
	require.NoError(t, mw.WriteField("includePlaceholders", "true"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/mask", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	masked := body["masked"].(string)
	assert.NotContains(t, masked, "jane@company.com")
	assert.NotContains(t, masked, "9876543210")
	assert.Equal(t, "partial", body["masking"])
}

func TestDetectUploadUnsupportedFormat(t *testing.T) {
	h := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "report.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/detect", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unsupported_format", decode(t, rec)["error"])
}
