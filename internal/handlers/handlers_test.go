package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/solarlabel/internal/label"
	"github.com/lehigh-university-libraries/solarlabel/internal/models"
	"github.com/lehigh-university-libraries/solarlabel/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	server    *httptest.Server
	logPath   string
	uploadDir string
	registry  *storage.ImageRegistry
	image     models.FetchedImage
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	dir := t.TempDir()

	imgPath := filepath.Join(dir, "aia_171_20230110T073009.jp2")
	require.NoError(t, os.WriteFile(imgPath, []byte("jp2"), 0644))

	img := models.FetchedImage{
		Path:       imgPath,
		ObservedAt: time.Date(2023, 1, 10, 7, 30, 9, 0, time.UTC),
		Instrument: "aia",
		Wavelength: "171",
	}
	registry := storage.NewImageRegistry()
	registry.Add(img)

	logPath := filepath.Join(dir, "labels.log")
	uploadDir := filepath.Join(dir, "uploads")
	h := New(label.NewRecorder(logPath), registry, uploadDir)
	server := httptest.NewServer(h.Routes())
	t.Cleanup(server.Close)

	return &testAPI{server: server, logPath: logPath, uploadDir: uploadDir, registry: registry, image: img}
}

func (a *testAPI) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(a.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testAPI) openSession(t *testing.T, body map[string]any) models.LabelingSession {
	t.Helper()
	resp := a.post(t, "/api/sessions", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session models.LabelingSession
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	return session
}

func decodeEvent(t *testing.T, resp *http.Response) eventResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out eventResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestLabelingOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	session := api.openSession(t, map[string]any{"image_path": api.image.Path})
	assert.Equal(t, "idle", session.State)
	assert.Equal(t, "SDO AIA 171 Å - 2023-01-10 07:30:09", session.Title)

	events := "/api/sessions/" + session.ID + "/events"

	out := decodeEvent(t, api.post(t, events, map[string]any{"type": "press", "x": 12.345, "y": 50.0}))
	assert.Equal(t, "dragging", out.Session.State)

	out = decodeEvent(t, api.post(t, events, map[string]any{"type": "release", "x": 3.2, "y": 80.7}))
	assert.Equal(t, "awaiting_comment", out.Session.State)
	require.NotNil(t, out.Session.Pending)
	assert.Equal(t, 3.2, out.Session.Pending.X0)

	out = decodeEvent(t, api.post(t, events, map[string]any{"type": "submit", "comment": "flare"}))
	assert.Equal(t, "idle", out.Session.State)
	require.NotNil(t, out.Label)
	assert.Equal(t, "flare", out.Label.Comment)
	assert.Equal(t, 1, out.Session.Recorded)

	data, err := os.ReadFile(api.logPath)
	require.NoError(t, err)
	assert.Equal(t, "Date/Time: 2023-01-10 07:30:09, Wavelength: 171Å, Comment: flare, Coordinates: (3.20, 50.00), (12.35, 80.70)\n", string(data))

	resp, err := http.Get(api.server.URL + "/api/labels")
	require.NoError(t, err)
	defer resp.Body.Close()
	var labels []label.Label
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&labels))
	require.Len(t, labels, 1)
	assert.Equal(t, "171", labels[0].Wavelength)
}

func TestCancelRetractsWithoutWriting(t *testing.T) {
	api := newTestAPI(t)
	session := api.openSession(t, map[string]any{"image_path": api.image.Path, "zoom": 2})
	events := "/api/sessions/" + session.ID + "/events"

	decodeEvent(t, api.post(t, events, map[string]any{"type": "press", "x": 10, "y": 10}))
	decodeEvent(t, api.post(t, events, map[string]any{"type": "release", "x": 30, "y": 50}))

	out := decodeEvent(t, api.post(t, events, map[string]any{"type": "cancel"}))
	assert.Equal(t, "idle", out.Session.State)
	require.NotNil(t, out.Retracted)
	assert.Equal(t, models.Region{X0: 5, Y0: 5, X1: 15, Y1: 25}, *out.Retracted)

	_, err := os.Stat(api.logPath)
	assert.True(t, os.IsNotExist(err))
}

func TestEventErrors(t *testing.T) {
	api := newTestAPI(t)
	session := api.openSession(t, map[string]any{"image_path": api.image.Path})
	events := "/api/sessions/" + session.ID + "/events"

	resp := api.post(t, events, map[string]any{"type": "release", "x": 1, "y": 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = api.post(t, events, map[string]any{"type": "wiggle"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.post(t, "/api/sessions/nope/events", map[string]any{"type": "press"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = api.post(t, "/api/sessions", map[string]any{"image_path": "/not/registered.jp2"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOpenSessionOnDeletedImage(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, os.Remove(api.image.Path))

	resp := api.post(t, "/api/sessions", map[string]any{"image_path": api.image.Path})
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestOversizedCommentKeepsPrompt(t *testing.T) {
	api := newTestAPI(t)
	session := api.openSession(t, map[string]any{"image_path": api.image.Path})
	events := "/api/sessions/" + session.ID + "/events"

	decodeEvent(t, api.post(t, events, map[string]any{"type": "press", "x": 1, "y": 1}))
	decodeEvent(t, api.post(t, events, map[string]any{"type": "release", "x": 2, "y": 2}))

	resp := api.post(t, events, map[string]any{"type": "submit", "comment": strings.Repeat("x", label.MaxLineBytes)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := decodeEvent(t, api.post(t, events, map[string]any{"type": "submit", "comment": "short"}))
	require.NotNil(t, out.Label)
	assert.Equal(t, "short", out.Label.Comment)
}

func TestLogWriteFailureReturns500(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, os.Mkdir(api.logPath, 0755))

	session := api.openSession(t, map[string]any{"image_path": api.image.Path})
	events := "/api/sessions/" + session.ID + "/events"

	decodeEvent(t, api.post(t, events, map[string]any{"type": "press", "x": 1, "y": 1}))
	decodeEvent(t, api.post(t, events, map[string]any{"type": "release", "x": 2, "y": 2}))

	resp := api.post(t, events, map[string]any{"type": "submit", "comment": "lost"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	detail, err := http.Get(api.server.URL + "/api/sessions/" + session.ID)
	require.NoError(t, err)
	defer detail.Body.Close()
	var view models.LabelingSession
	require.NoError(t, json.NewDecoder(detail.Body).Decode(&view))
	assert.Equal(t, "awaiting_comment", view.State)
}

func TestRegisterImage(t *testing.T) {
	api := newTestAPI(t)
	other := filepath.Join(filepath.Dir(api.image.Path), "aia_193.jp2")
	require.NoError(t, os.WriteFile(other, []byte("jp2"), 0644))

	resp := api.post(t, "/api/images", models.FetchedImage{
		Path:       other,
		ObservedAt: time.Date(2023, 1, 30, 7, 30, 0, 0, time.UTC),
		Instrument: "aia",
		Wavelength: "193",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.post(t, "/api/images", map[string]any{"path": "/missing.jp2", "observed_at": "2023-01-30T07:30:00Z"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	list, err := http.Get(api.server.URL + "/api/images")
	require.NoError(t, err)
	defer list.Body.Close()
	var images []models.FetchedImage
	require.NoError(t, json.NewDecoder(list.Body).Decode(&images))
	require.Len(t, images, 2)
	assert.True(t, strings.HasSuffix(images[1].Path, "aia_193.jp2"))
}
