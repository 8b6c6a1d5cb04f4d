package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/seedsoil/internal/llm"
	"github.com/lazypower/seedsoil/internal/store"
)

const summaryJSON = `{"essence":"habits compound","nuggets":["small wins add up"],"action":"do one thing daily"}`

func TestCaptureAndGet(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, "POST", "/api/seeds", `{"text":"  habits compound  "}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	assert.Equal(t, "habits compound", created["raw"])
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	w = do(t, srv, "GET", "/api/seeds/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode(t, w)["id"])

	w = do(t, srv, "GET", "/api/seeds/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaptureRejectsEmpty(t *testing.T) {
	srv, eng := testServer(t)

	w := do(t, srv, "POST", "/api/seeds", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, "POST", "/api/seeds", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, eng.Items())
}

func TestListSeedsByStatus(t *testing.T) {
	srv, eng := testServer(t)
	a, err := eng.Capture("a")
	require.NoError(t, err)
	_, err = eng.Capture("b")
	require.NoError(t, err)
	_, err = eng.Archive(a.ID)
	require.NoError(t, err)

	w := do(t, srv, "GET", "/api/seeds", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 2)

	w = do(t, srv, "GET", "/api/seeds?status=buried", "")
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].(map[string]any)["id"])

	w = do(t, srv, "GET", "/api/seeds?status=composted", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArchiveResurrect(t *testing.T) {
	srv, eng := testServer(t)
	it, err := eng.Capture("seed")
	require.NoError(t, err)

	w := do(t, srv, "POST", "/api/seeds/"+it.ID+"/archive", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["changed"])

	// Burying twice changes nothing.
	w = do(t, srv, "POST", "/api/seeds/"+it.ID+"/archive", "")
	assert.Equal(t, false, decode(t, w)["changed"])

	w = do(t, srv, "POST", "/api/seeds/"+it.ID+"/resurrect", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["changed"])
	soil := body["item"].(map[string]any)["soil"].(map[string]any)
	assert.Equal(t, "active", soil["status"])
	assert.Equal(t, 0.5, soil["strength"])
}

func TestUnknownIDIsNoOp(t *testing.T) {
	srv, _ := testServer(t)

	for _, path := range []string{"/archive", "/resurrect"} {
		w := do(t, srv, "POST", "/api/seeds/ghost"+path, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		body := decode(t, w)
		assert.Equal(t, false, body["changed"], path)
		assert.NotContains(t, body, "item", path)
	}

	w := do(t, srv, "POST", "/api/seeds/ghost/review", `{"success":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["changed"])
}

func TestReviewedOutcome(t *testing.T) {
	srv, eng := testServer(t)
	it, err := eng.Capture("seed")
	require.NoError(t, err)

	w := do(t, srv, "POST", "/api/seeds/"+it.ID+"/review", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, "POST", "/api/seeds/"+it.ID+"/review", `{"success":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["changed"])

	got, ok := eng.Get(it.ID)
	require.True(t, ok)
	assert.Equal(t, store.StatusBuried, got.Soil.Status)
}

func TestClearAllRequiresConfirm(t *testing.T) {
	srv, eng := testServer(t)
	_, err := eng.Capture("seed")
	require.NoError(t, err)

	w := do(t, srv, "DELETE", "/api/seeds", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, eng.Items(), 1)

	w = do(t, srv, "DELETE", "/api/seeds?confirm=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, eng.Items())
}

func TestReviewAndGapsEmpty(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, "GET", "/api/review", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, decode(t, w)["items"])

	w = do(t, srv, "GET", "/api/gaps", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, decode(t, w)["gaps"])
}

func TestPulseWithoutSummarizer(t *testing.T) {
	srv, _ := testServer(t)
	w := do(t, srv, "POST", "/api/pulse", "")
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestPulseDistillsAndRecords(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: summaryJSON, Provider: "mock"}}
	eng := testEngine(t, mock)
	srv := New(eng, "test")

	it, err := eng.Capture("habits compound over time")
	require.NoError(t, err)

	w := do(t, srv, "POST", "/api/pulse", "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode(t, w)
	assert.Equal(t, float64(1), report["queued"])
	assert.Equal(t, float64(1), report["distilled"])
	assert.Equal(t, float64(0), report["failed"])

	got, ok := eng.Get(it.ID)
	require.True(t, ok)
	require.NotNil(t, got.Seed)
	assert.Equal(t, "habits compound", got.Seed.Essence)

	w = do(t, srv, "GET", "/api/review", "")
	assert.Len(t, decode(t, w)["items"], 1)

	w = do(t, srv, "GET", "/api/pulses?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	pulses := decode(t, w)["pulses"].([]any)
	require.Len(t, pulses, 1)
	assert.Equal(t, float64(1), pulses[0].(map[string]any)["distilled"])

	w = do(t, srv, "GET", "/api/pulses?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportImportRoundTrip(t *testing.T) {
	srv, eng := testServer(t)
	_, err := eng.Capture("first")
	require.NoError(t, err)
	_, err = eng.Capture("second")
	require.NoError(t, err)

	w := do(t, srv, "GET", "/api/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	exported := w.Body.String()

	require.NoError(t, eng.ClearAll())
	require.Empty(t, eng.Items())

	w = do(t, srv, "POST", "/api/import", exported)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["items"])
	assert.Len(t, eng.Items(), 2)
}

func TestExportYAML(t *testing.T) {
	srv, eng := testServer(t)
	_, err := eng.Capture("yaml me")
	require.NoError(t, err)

	w := do(t, srv, "GET", "/api/export?format=yaml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "raw: yaml me")

	req := httptest.NewRequest("POST", "/api/import", strings.NewReader(w.Body.String()))
	req.Header.Set("Content-Type", "application/yaml")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	w = do(t, srv, "GET", "/api/export?format=toml", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportRejectsInvalid(t *testing.T) {
	srv, eng := testServer(t)
	_, err := eng.Capture("keep me")
	require.NoError(t, err)

	w := do(t, srv, "POST", "/api/import", `{"items":[{"id":"a","soil":{"strength":3}}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, eng.Items(), 1)
}
