package rest_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KlarLuft/PurifierCloud/internal/config"
	"github.com/KlarLuft/PurifierCloud/internal/storage"
	"github.com/KlarLuft/PurifierCloud/internal/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	catalogDir := t.TempDir()
	modelYAML := "model: luftwerk-300\nname: LuftWerk 300\nfirmware: \"1.4.2\"\ncommands:\n  - type: POWER\n    description: on/off\n"
	require.NoError(t, os.WriteFile(filepath.Join(catalogDir, "luftwerk-300.yaml"), []byte(modelYAML), 0o644))

	cfg := &config.Config{
		Server:  config.ServerConfig{HTTPPort: 0, ShutdownTimeout: time.Second},
		Storage: config.StorageConfig{Backend: "memory"},
		Catalog: config.CatalogConfig{SearchPaths: []string{catalogDir}},
	}

	lm := system.NewLifecycleManager(storage.NewMemoryStore(), cfg, zap.NewNop())
	return lm.RESTServer().Router()
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestEnqueuePollAckFlow(t *testing.T) {
	router := newTestServer(t)

	// enqueue
	w, body := doJSON(t, router, http.MethodPost, "/api/v1/commands/enqueue",
		`{"deviceId":"H1001","command":{"type":"POWER","value":"ON"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	// poll delivers the payload unmodified
	w, body = doJSON(t, router, http.MethodGet, "/api/v1/commands/next?deviceId=H1001", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["hasCommand"])
	assert.Equal(t, id, body["id"])
	command, _ := body["command"].(map[string]any)
	assert.Equal(t, "POWER", command["type"])
	assert.Equal(t, "ON", command["value"])

	// immediate re-poll is empty
	w, body = doJSON(t, router, http.MethodGet, "/api/v1/commands/next?deviceId=H1001", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["hasCommand"])

	// acknowledge without result
	w, body = doJSON(t, router, http.MethodPost, "/api/v1/commands/ack",
		fmt.Sprintf(`{"deviceId":"H1001","id":%q}`, id))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])

	// history shows the default result
	w, body = doJSON(t, router, http.MethodGet, "/api/v1/devices/H1001/commands", "")
	require.Equal(t, http.StatusOK, w.Code)
	commands, _ := body["commands"].([]any)
	require.Len(t, commands, 1)
	entry := commands[0].(map[string]any)
	assert.Equal(t, "done", entry["status"])
	assert.Equal(t, "OK", entry["result"])
}

func TestEnqueueValidation(t *testing.T) {
	router := newTestServer(t)

	w, body := doJSON(t, router, http.MethodPost, "/api/v1/commands/enqueue", `{"command":{"type":"POWER"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["ok"])
	assert.NotEmpty(t, body["error"])

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/commands/enqueue", `{"deviceId":"H1001"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/commands/enqueue", `{"deviceId":"H1001","command":null}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPollValidationAndEmptyQueue(t *testing.T) {
	router := newTestServer(t)

	w, body := doJSON(t, router, http.MethodGet, "/api/v1/commands/next", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["ok"])

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/commands/next?deviceId=H9999", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["hasCommand"])
}

func TestAckErrors(t *testing.T) {
	router := newTestServer(t)

	// unknown id -> 404
	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/commands/ack",
		`{"deviceId":"H1001","id":"doesNotExist"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// missing fields -> 400
	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/commands/ack", `{"deviceId":"H1001"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// enqueued but never delivered -> 409
	w, body := doJSON(t, router, http.MethodPost, "/api/v1/commands/enqueue",
		`{"deviceId":"H1001","command":{"type":"POWER","value":"ON"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	id := body["id"].(string)

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/commands/ack",
		fmt.Sprintf(`{"deviceId":"H1001","id":%q}`, id))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestWrongMethodIs405(t *testing.T) {
	router := newTestServer(t)

	w, body := doJSON(t, router, http.MethodPut, "/api/v1/commands/enqueue", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, false, body["ok"])

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/commands/next", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestDeviceStateEndpoints(t *testing.T) {
	router := newTestServer(t)

	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/devices/H1001/state", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := doJSON(t, router, http.MethodPost, "/api/v1/devices/state",
		`{"deviceId":"H1001","state":{"pm25":12,"fan":3}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/devices/H1001/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "H1001", body["deviceId"])
	state, _ := body["state"].(map[string]any)
	assert.Equal(t, float64(12), state["pm25"])
	assert.NotEmpty(t, body["updatedAt"])

	// missing state -> 400
	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/devices/state", `{"deviceId":"H1001"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModelCatalogEndpoints(t *testing.T) {
	router := newTestServer(t)

	w, body := doJSON(t, router, http.MethodGet, "/api/v1/models", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["count"])

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/models/luftwerk-300", "")
	require.Equal(t, http.StatusOK, w.Code)
	model, _ := body["model"].(map[string]any)
	assert.Equal(t, "LuftWerk 300", model["name"])

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/models/luftwerk-900", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndStatus(t *testing.T) {
	router := newTestServer(t)

	w, body := doJSON(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/system/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "INITIALIZING", body["state"])
	assert.Equal(t, "memory", body["storage_backend"])
}
