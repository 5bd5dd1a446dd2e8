package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/marcstream/pkg/codec"
	"github.com/ssargent/marcstream/pkg/extract"
	"github.com/ssargent/marcstream/pkg/marc"
)

// maxIngestBytes bounds a single ingest request body.
const maxIngestBytes = 100 << 20

// Server holds the API server state
type Server struct {
	store   IRecordStore
	index   IIndex
	codec   *codec.RecordCodec
	config  ServerConfig
	metrics *Metrics
}

// NewServer creates a new API server
func NewServer(store IRecordStore, index IIndex, config ServerConfig, metrics *Metrics) *Server {
	recordCodec := codec.NewRecordCodec()
	recordCodec.ForceUTF8 = config.ForceUTF8
	return &Server{
		store:   store,
		index:   index,
		codec:   recordCodec,
		config:  config,
		metrics: metrics,
	}
}

// handleHealth reports the health status of the API.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleIngest parses a MARC-21 transmission body, storing and indexing
// each record. With ?skip_errors=true (or the server-wide skip policy),
// undecodable records are reported and skipped instead of failing the
// request.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBytes))
	if err != nil {
		sendError(w, fmt.Sprintf("failed to read request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		sendError(w, "empty request body", http.StatusBadRequest)
		return
	}

	skip := s.config.SkipOnError
	if raw := r.URL.Query().Get("skip_errors"); raw != "" {
		skip, err = strconv.ParseBool(raw)
		if err != nil {
			sendError(w, "skip_errors must be a boolean", http.StatusBadRequest)
			return
		}
	}

	result := IngestResult{Warnings: make(map[string][]string)}
	for i, chunk := range splitRecords(body) {
		record, err := s.codec.Decode(chunk)
		if err != nil {
			s.metrics.RecordIngest(false, 0)
			if skip {
				result.Skipped = append(result.Skipped, fmt.Sprintf("record %d: %v", i, err))
				continue
			}
			sendError(w, fmt.Sprintf("record %d: %v", i, err), http.StatusBadRequest)
			return
		}

		id, err := s.store.Create(record)
		if err != nil {
			sendError(w, fmt.Sprintf("failed to store record %d: %v", i, err), http.StatusInternalServerError)
			return
		}
		if err := s.index.IndexRecord(*id, record); err != nil {
			sendError(w, fmt.Sprintf("failed to index record %d: %v", i, err), http.StatusInternalServerError)
			return
		}

		result.IDs = append(result.IDs, id.String())
		if warnings := record.Warnings(); len(warnings) > 0 {
			result.Warnings[id.String()] = warnings
		}
		s.metrics.RecordIngest(true, len(record.Warnings()))
	}

	s.refreshStoreStats()
	sendSuccess(w, result)
}

// handleListRecords returns the ids of every stored record.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.List()
	if err != nil {
		sendError(w, fmt.Sprintf("failed to list records: %v", err), http.StatusInternalServerError)
		return
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	sendSuccess(w, out)
}

// handleGetRecord returns the JSON rendering of a stored record.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, record, ok := s.fetchRecord(w, r)
	if !ok {
		return
	}
	sendSuccess(w, recordView(id.String(), record))
}

// handleGetRecordMARC returns the stored record's raw MARC-21 bytes.
func (s *Server) handleGetRecordMARC(w http.ResponseWriter, r *http.Request) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "invalid record id", http.StatusBadRequest)
		return
	}
	data, err := s.store.ReadRaw(id)
	if err != nil {
		sendError(w, "record not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/marc")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleDeleteRecord removes a record from the store and the index.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, record, ok := s.fetchRecord(w, r)
	if !ok {
		return
	}
	if err := s.index.DeleteRecord(id, record); err != nil {
		sendError(w, fmt.Sprintf("failed to unindex record: %v", err), http.StatusInternalServerError)
		return
	}
	if err := s.store.Delete(id); err != nil {
		sendError(w, fmt.Sprintf("failed to delete record: %v", err), http.StatusInternalServerError)
		return
	}
	s.refreshStoreStats()
	sendSuccess(w, map[string]string{"deleted": id.String()})
}

// handleExtract compiles the pattern named in the query string and runs
// it against the stored record.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		s.metrics.RecordExtract(false)
		sendError(w, "missing pattern parameter", http.StatusBadRequest)
		return
	}
	options, err := parseOptions(r)
	if err != nil {
		s.metrics.RecordExtract(false)
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	plan, err := extract.New(pattern, options)
	if err != nil {
		s.metrics.RecordExtract(false)
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, record, ok := s.fetchRecord(w, r)
	if !ok {
		s.metrics.RecordExtract(false)
		return
	}

	values := plan.Extract(record)
	if values == nil {
		values = []string{}
	}
	s.metrics.RecordExtract(true)
	sendSuccess(w, values)
}

// handleSearch looks up record ids by an indexed field value or range.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	if field == "" {
		sendError(w, "missing field parameter", http.StatusBadRequest)
		return
	}

	var (
		ids []ksuid.KSUID
		err error
	)
	if value := r.URL.Query().Get("value"); value != "" {
		ids, err = s.index.Search(field, value)
	} else {
		lo := r.URL.Query().Get("from")
		hi := r.URL.Query().Get("to")
		if lo == "" || hi == "" {
			sendError(w, "provide value, or from and to", http.StatusBadRequest)
			return
		}
		ids, err = s.index.SearchRange(field, lo, hi)
	}
	if err != nil {
		sendError(w, fmt.Sprintf("search failed: %v", err), http.StatusInternalServerError)
		return
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	sendSuccess(w, out)
}

// handleStats reports store statistics and the configured index fields.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	count, size, err := s.store.Stats()
	if err != nil {
		sendError(w, fmt.Sprintf("failed to compute stats: %v", err), http.StatusInternalServerError)
		return
	}
	s.metrics.UpdateStoreStats(count, size)
	sendSuccess(w, StatsResult{
		Records:   count,
		SizeBytes: size,
		Fields:    s.index.Fields(),
	})
}

// fetchRecord resolves the {id} URL parameter to a stored record,
// writing the appropriate error response on failure.
func (s *Server) fetchRecord(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, *marc.Record, bool) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "invalid record id", http.StatusBadRequest)
		return ksuid.KSUID{}, nil, false
	}
	record, err := s.store.Read(id)
	if err != nil {
		sendError(w, "record not found", http.StatusNotFound)
		return ksuid.KSUID{}, nil, false
	}
	return id, record, true
}

func (s *Server) refreshStoreStats() {
	if count, size, err := s.store.Stats(); err == nil {
		s.metrics.UpdateStoreStats(count, size)
	}
}

// parseOptions builds extractor options from query parameters.
func parseOptions(r *http.Request) (extract.Options, error) {
	options := extract.Options{
		Default:   r.URL.Query().Get("default"),
		Separator: r.URL.Query().Get("separator"),
	}

	for param, target := range map[string]*bool{
		"first":            &options.First,
		"trim_punctuation": &options.TrimPunctuation,
		"allow_duplicates": &options.AllowDuplicates,
	} {
		raw := r.URL.Query().Get(param)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return extract.Options{}, fmt.Errorf("%s must be a boolean", param)
		}
		*target = value
	}

	switch r.URL.Query().Get("alternate_field") {
	case "", "include":
		options.Alternate = extract.Include
	case "dont_include":
		options.Alternate = extract.DontInclude
	case "only":
		options.Alternate = extract.Only
	default:
		return extract.Options{}, fmt.Errorf("unknown alternate_field value")
	}
	return options, nil
}

// splitRecords frames the records of a transmission buffer on the
// Record Terminator. Trailing bytes with no terminator are dropped, as
// the streaming reader does.
func splitRecords(data []byte) [][]byte {
	var out [][]byte
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == marc.RecordTerminator {
			out = append(out, data[start:i+1])
			start = i + 1
		}
	}
	return out
}
