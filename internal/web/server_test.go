package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tsvingest/internal/config"
	"github.com/JonMunkholm/tsvingest/internal/core"
	"github.com/JonMunkholm/tsvingest/internal/store"
)

const testMapping = `<FileNames>
  <FileName filename="Wifi Profiles.tsv" description="Wifi Profiles">
    <ArtifactName artifactname="TSK_WIFI_NETWORK" comment="null">
      <AttributeName attributename="TSK_SSID" columnName="SSID" required="yes"/>
      <AttributeName attributename="null" columnName="Security Type" required="no"/>
    </ArtifactName>
  </FileName>
</FileNames>`

type testEnv struct {
	server *Server
	store  *store.Memory
}

func newTestEnv(t *testing.T, env map[string]string) *testEnv {
	t.Helper()
	cfg, err := config.LoadFrom(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewMemory()
	mapping, err := core.LoadMapping(context.Background(), strings.NewReader(testMapping),
		core.FormatXML, mem, core.LoadOptions{Logger: logger})
	require.NoError(t, err)

	ing := core.NewIngestor(mapping, mem, core.IngestOptions{ModuleName: "LEAPP", Logger: logger})
	return &testEnv{server: NewServer(ing, cfg), store: mem}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.JSONEq(t, `{"status":"ok","passes":{"active":0,"available":4,"max":4}}`, rec.Body.String())
}

func TestListMappings(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/mappings", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var views []core.FileDescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "wifi profiles.tsv", views[0].FileName)
	assert.Equal(t, "TSK_WIFI_NETWORK", views[0].RecordType)
	require.Len(t, views[0].Columns, 2)
	assert.Equal(t, "ssid", views[0].Columns[0].Column)
	assert.Equal(t, "STRING", views[0].Columns[0].ValueKind)
	assert.True(t, views[0].Columns[1].Ignored)
}

func TestIngest(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := t.TempDir()
	data := "SSID\tSecurity Type\nhome\tWPA2\noffice\tWPA3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Wifi Profiles.tsv"), []byte(data), 0o644))

	rec := env.do(t, http.MethodPost, "/api/ingest", IngestRequest{
		OutputDir: dir,
		Mode:      "datasource",
		Owner:     OwnerParams{ID: "ds-1", Name: "phone.tar"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result core.PassResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, core.OwnerDataSource, result.Mode)
	assert.Equal(t, 2, result.RecordsCreated)
	assert.Equal(t, 2, result.RecordsPosted)
	assert.Equal(t, 1, result.Batches)

	posted := env.store.Posted()
	require.Len(t, posted, 2)
	assert.Equal(t, "ds-1", posted[0].Owner.ID)
	assert.Equal(t, "home", posted[0].Attributes[0].Value.Str)
}

func TestIngest_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)
	dir := t.TempDir()

	tests := []struct {
		name string
		body any
	}{
		{"missing output dir", IngestRequest{Owner: OwnerParams{ID: "1"}}},
		{"relative output dir", IngestRequest{OutputDir: "out", Owner: OwnerParams{ID: "1"}}},
		{"missing owner id", IngestRequest{OutputDir: dir}},
		{"bad mode", IngestRequest{OutputDir: dir, Mode: "tree", Owner: OwnerParams{ID: "1"}}},
		{"unknown field", map[string]any{"outputDir": dir, "owner": map[string]string{"id": "1"}, "extra": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/ingest", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "REQ001", resp.Code)
		})
	}
	assert.Equal(t, 0, env.store.Batches())
}

func TestIngest_MissingDirectory(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/ingest", IngestRequest{
		OutputDir: filepath.Join(t.TempDir(), "does-not-exist"),
		Owner:     OwnerParams{ID: "1"},
	}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "FILE001", resp.Code)
}

func TestIngest_TooManyPending(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"INGEST_MAX_PENDING": "1",
		"INGEST_QUEUE_WAIT":  "10ms",
	})
	require.NoError(t, env.server.limiter.acquire(context.Background()))
	defer env.server.limiter.release()

	rec := env.do(t, http.MethodPost, "/api/ingest", IngestRequest{
		OutputDir: t.TempDir(),
		Owner:     OwnerParams{ID: "1"},
	}, nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ING002", resp.Code)
	assert.Equal(t, 0, env.store.Batches())
}

func TestIngest_TimedOutPassIsAnError(t *testing.T) {
	env := newTestEnv(t, map[string]string{"INGEST_TIMEOUT": "1ns"})
	dir := t.TempDir()
	data := "SSID\tSecurity Type\nhome\tWPA2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Wifi Profiles.tsv"), []byte(data), 0o644))

	rec := env.do(t, http.MethodPost, "/api/ingest", IngestRequest{
		OutputDir: dir,
		Owner:     OwnerParams{ID: "1"},
	}, nil)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ING001", resp.Code)
	assert.Equal(t, 0, env.store.Batches())
}

func TestAPIKeyAuth(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"REQUIRE_API_KEY": "true",
		"API_KEYS":        "secret-1,secret-2",
	})

	rec := env.do(t, http.MethodGet, "/api/mappings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/mappings", nil, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/mappings", nil, map[string]string{"X-API-Key": "secret-2"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open.
	rec = env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
