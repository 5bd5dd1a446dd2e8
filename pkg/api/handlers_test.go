package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/marcstream/pkg/extract"
	"github.com/ssargent/marcstream/pkg/index"
	"github.com/ssargent/marcstream/pkg/marc"
	"github.com/ssargent/marcstream/pkg/storage"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.NewRecordStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	plan, err := extract.New("245a", extract.Options{TrimPunctuation: true})
	require.NoError(t, err)
	manager := index.NewManager(store.DB(), []index.Field{{Name: "title", Plan: plan}})

	return NewServer(store, manager, ServerConfig{APIKey: "test-key"}, NewMetrics())
}

// marcBody serializes records into one transmission buffer.
func marcBody(t *testing.T, records ...*marc.Record) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, record := range records {
		data, err := record.MARC()
		require.NoError(t, err)
		buf.Write(data)
	}
	return buf.Bytes()
}

func titleRecord(t *testing.T, title string) *marc.Record {
	t.Helper()
	record := marc.NewRecord()
	field, err := marc.NewDataField("245", '1', '0', marc.Subfield{Code: 'a', Data: title})
	require.NoError(t, err)
	record.Add(field)
	return record
}

// decodeResponse unmarshals the standard API envelope.
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var response APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

// withURLParam injects a chi URL parameter for direct handler calls.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// ingestOne stores a record through the ingest handler and returns its id.
func ingestOne(t *testing.T, server *Server, record *marc.Record) string {
	t.Helper()
	req := httptest.NewRequest("POST", "/records", bytes.NewReader(marcBody(t, record)))
	w := httptest.NewRecorder()
	server.handleIngest(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		IDs []string `json:"ids"`
	}
	raw, err := json.Marshal(decodeResponse(t, w).Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.IDs, 1)
	return result.IDs[0]
}

func TestServer_handleHealth(t *testing.T) {
	server := setupTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	server.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestServer_handleIngest(t *testing.T) {
	t.Run("single record", func(t *testing.T) {
		server := setupTestServer(t)
		id := ingestOne(t, server, titleRecord(t, "Alpha"))
		assert.NotEmpty(t, id)
	})

	t.Run("multiple records", func(t *testing.T) {
		server := setupTestServer(t)
		body := marcBody(t, titleRecord(t, "Alpha"), titleRecord(t, "Beta"))
		req := httptest.NewRequest("POST", "/records", bytes.NewReader(body))
		w := httptest.NewRecorder()
		server.handleIngest(w, req)

		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		server := setupTestServer(t)
		req := httptest.NewRequest("POST", "/records", bytes.NewReader(nil))
		w := httptest.NewRecorder()
		server.handleIngest(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("undecodable record fails the request", func(t *testing.T) {
		server := setupTestServer(t)
		req := httptest.NewRequest("POST", "/records", bytes.NewReader([]byte("garbage but long enough to look at\x1d")))
		w := httptest.NewRecorder()
		server.handleIngest(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("skip_errors skips the bad record", func(t *testing.T) {
		server := setupTestServer(t)
		body := append([]byte("garbage but long enough to look at\x1d"), marcBody(t, titleRecord(t, "Alpha"))...)
		req := httptest.NewRequest("POST", "/records?skip_errors=true", bytes.NewReader(body))
		w := httptest.NewRecorder()
		server.handleIngest(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var result IngestResult
		raw, err := json.Marshal(decodeResponse(t, w).Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &result))
		assert.Len(t, result.IDs, 1)
		assert.Len(t, result.Skipped, 1)
	})
}

func TestServer_handleGetRecord(t *testing.T) {
	server := setupTestServer(t)
	id := ingestOne(t, server, titleRecord(t, "Alpha"))

	t.Run("found", func(t *testing.T) {
		req := withURLParam(httptest.NewRequest("GET", "/records/"+id, nil), "id", id)
		w := httptest.NewRecorder()
		server.handleGetRecord(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Alpha")
		assert.Contains(t, w.Body.String(), `"tag":"245"`)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := withURLParam(httptest.NewRequest("GET", "/records/nope", nil), "id", "nope")
		w := httptest.NewRecorder()
		server.handleGetRecord(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		missing := ksuid.New().String() // well-formed, absent
		req := withURLParam(httptest.NewRequest("GET", "/records/"+missing, nil), "id", missing)
		w := httptest.NewRecorder()
		server.handleGetRecord(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_handleGetRecordMARC(t *testing.T) {
	server := setupTestServer(t)
	record := titleRecord(t, "Alpha")
	id := ingestOne(t, server, record)

	req := withURLParam(httptest.NewRequest("GET", "/records/"+id+"/marc", nil), "id", id)
	w := httptest.NewRecorder()
	server.handleGetRecordMARC(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/marc", w.Header().Get("Content-Type"))

	expected, err := record.MARC()
	require.NoError(t, err)
	assert.Equal(t, expected, w.Body.Bytes())
}

func TestServer_handleExtract(t *testing.T) {
	server := setupTestServer(t)
	id := ingestOne(t, server, titleRecord(t, "Alpha :"))

	extractURL := func(query string) *http.Request {
		req := httptest.NewRequest("GET", "/records/"+id+"/extract?"+query, nil)
		return withURLParam(req, "id", id)
	}

	t.Run("pattern match", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.handleExtract(w, extractURL("pattern=245a"))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Alpha :")
	})

	t.Run("trim punctuation option", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.handleExtract(w, extractURL("pattern=245a&trim_punctuation=true"))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"Alpha"`)
	})

	t.Run("no match yields empty list", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.handleExtract(w, extractURL("pattern=999z"))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})

	t.Run("missing pattern", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.handleExtract(w, extractURL(""))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.handleExtract(w, extractURL("pattern=24"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid option", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.handleExtract(w, extractURL("pattern=245a&first=maybe"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_handleSearch(t *testing.T) {
	server := setupTestServer(t)
	id := ingestOne(t, server, titleRecord(t, "Alpha"))

	t.Run("exact value", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/search?field=title&value=Alpha", nil)
		w := httptest.NewRecorder()
		server.handleSearch(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), id)
	})

	t.Run("missing field", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/search?value=Alpha", nil)
		w := httptest.NewRecorder()
		server.handleSearch(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("range", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/search?field=title&from=A&to=B", nil)
		w := httptest.NewRecorder()
		server.handleSearch(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), id)
	})
}

func TestServer_handleDeleteRecord(t *testing.T) {
	server := setupTestServer(t)
	id := ingestOne(t, server, titleRecord(t, "Alpha"))

	req := withURLParam(httptest.NewRequest("DELETE", "/records/"+id, nil), "id", id)
	w := httptest.NewRecorder()
	server.handleDeleteRecord(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// The record and its index entries are gone.
	req = withURLParam(httptest.NewRequest("GET", "/records/"+id, nil), "id", id)
	w = httptest.NewRecorder()
	server.handleGetRecord(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	searchReq := httptest.NewRequest("GET", "/search?field=title&value=Alpha", nil)
	w = httptest.NewRecorder()
	server.handleSearch(w, searchReq)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), id)
}

func TestServer_handleStats(t *testing.T) {
	server := setupTestServer(t)
	ingestOne(t, server, titleRecord(t, "Alpha"))

	req := httptest.NewRequest("GET", "/stats", nil)
	w := httptest.NewRecorder()
	server.handleStats(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var result StatsResult
	raw, err := json.Marshal(decodeResponse(t, w).Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, 1, result.Records)
	assert.Greater(t, result.SizeBytes, int64(0))
	assert.Equal(t, []string{"title"}, result.Fields)
}

func TestRouter_APIKeyAuth(t *testing.T) {
	server := setupTestServer(t)
	router := Router(server, ServerConfig{APIKey: "test-key"}, server.metrics)

	t.Run("missing key rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/health", nil)
		req.Header.Set("X-API-Key", "wrong")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid key accepted", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/health", nil)
		req.Header.Set("X-API-Key", "test-key")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("metrics endpoint is unprotected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/metrics", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
