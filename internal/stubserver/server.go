// Package stubserver is an in-memory stand-in for the CMS backend's
// multipart endpoints, used by the integration tests and as a local
// development target. It accepts scalar parts, repeated file parts and a
// JSON tombstone part, and answers with the stored representation the
// way the real backend does.
package stubserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JuanRG-20221039/paulofraire-media/internal/middleware"
	"github.com/JuanRG-20221039/paulofraire-media/internal/models"
)

// maxFormMemory bounds how much of a parsed form stays in memory;
// larger file parts spill to disk
const maxFormMemory = 32 << 20

// Options configures the stub server
type Options struct {
	// Token enables bearer auth when non-empty
	Token           string
	AllowedOrigins  []string
	MaxRequestBytes int64
}

// StoredMedia is one media file the stub has accepted
type StoredMedia struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"sizeBytes"`
	MimeType  string `json:"mimeType"`
}

// Record is the stored representation of one resource
type Record struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
	Media  []StoredMedia     `json:"media"`
}

// Server holds the stub's in-memory state. Fault injection lets tests
// script the next response.
type Server struct {
	logger *zap.Logger
	opts   Options

	mu      sync.Mutex
	records map[string]*Record
	faults  []fault
	latency time.Duration
}

type fault struct {
	status  int
	message string
}

// New creates an empty stub server
func New(logger *zap.Logger, opts Options) *Server {
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = 210 << 20
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		logger:  logger,
		opts:    opts,
		records: make(map[string]*Record),
	}
}

// FailNext scripts the next create/update to fail with the given status
// and message body
func (s *Server) FailNext(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, fault{status: status, message: message})
}

// SetLatency delays every create/update, used to provoke client timeouts
func (s *Server) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Record returns a stored record by ID, for test assertions
func (s *Server) Record(id string) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	return rec, ok
}

// FirstRecord returns an arbitrary stored record when exactly one exists
func (s *Server) FirstRecord() (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) != 1 {
		return nil, false
	}
	for _, rec := range s.records {
		return rec, true
	}
	return nil, false
}

// Router builds the stub's HTTP surface
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.CORS(s.opts.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(middleware.RequestSizeLimit(s.opts.MaxRequestBytes))

	r.Route("/api/v1/{resource}", func(r chi.Router) {
		r.Post("/", s.create)
		r.Put("/{id}", s.update)
		r.Get("/{id}", s.get)
	})

	return r
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	if s.injectFault(w) {
		return
	}

	fields, files, _, err := s.parseForm(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := &Record{
		ID:     uuid.New().String(),
		Fields: fields,
		Media:  files,
	}

	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()

	s.respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	if s.injectFault(w) {
		return
	}

	id := chi.URLParam(r, "id")

	fields, files, tombstones, err := s.parseForm(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		s.respondError(w, http.StatusNotFound, "record not found")
		return
	}

	// Reconcile deletions before appending new media
	if len(tombstones) > 0 {
		kept := rec.Media[:0]
		for _, m := range rec.Media {
			if tombstones[m.ID] || tombstones[m.URL] {
				continue
			}
			kept = append(kept, m)
		}
		rec.Media = kept
	}

	for k, v := range fields {
		rec.Fields[k] = v
	}
	rec.Media = append(rec.Media, files...)

	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}

	id := chi.URLParam(r, "id")

	s.mu.Lock()
	rec, ok := s.records[id]
	s.mu.Unlock()

	if !ok {
		s.respondError(w, http.StatusNotFound, "record not found")
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

// parseForm pulls scalar fields, file parts and the tombstone list out of
// a multipart request. Any value part whose name ends in "ToDelete" is
// treated as a JSON array of remote identifiers.
func (s *Server) parseForm(r *http.Request) (map[string]string, []StoredMedia, map[string]bool, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse multipart form")
	}

	fields := make(map[string]string)
	tombstones := make(map[string]bool)

	for name, values := range r.MultipartForm.Value {
		if len(values) == 0 {
			continue
		}
		if strings.HasSuffix(name, "ToDelete") {
			var ids []string
			if err := json.Unmarshal([]byte(values[0]), &ids); err != nil {
				return nil, nil, nil, fmt.Errorf("%s is not a JSON array", name)
			}
			for _, id := range ids {
				tombstones[id] = true
			}
			continue
		}
		fields[name] = values[0]
	}

	var files []StoredMedia
	var fileFields []string
	for name := range r.MultipartForm.File {
		fileFields = append(fileFields, name)
	}
	sort.Strings(fileFields)
	for _, name := range fileFields {
		for _, fh := range r.MultipartForm.File[name] {
			id := uuid.New().String()
			files = append(files, StoredMedia{
				ID:        id,
				Name:      fh.Filename,
				URL:       fmt.Sprintf("/media/%s/%s", id, fh.Filename),
				SizeBytes: fh.Size,
				MimeType:  fh.Header.Get("Content-Type"),
			})
		}
	}

	return fields, files, tombstones, nil
}

// authorized enforces bearer auth when a token is configured
func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if s.opts.Token == "" {
		return true
	}
	if r.Header.Get("Authorization") != "Bearer "+s.opts.Token {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return false
	}
	return true
}

// injectFault applies scripted latency and at most one queued failure
func (s *Server) injectFault(w http.ResponseWriter) bool {
	s.mu.Lock()
	latency := s.latency
	var f *fault
	if len(s.faults) > 0 {
		f = &s.faults[0]
		s.faults = s.faults[1:]
	}
	s.mu.Unlock()

	if latency > 0 {
		time.Sleep(latency)
	}
	if f != nil {
		s.respondJSON(w, f.status, map[string]string{"message": f.message})
		return true
	}
	return false
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// respondError sends an error JSON response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// ExtractMedia parses the media list out of a record representation into
// remote media items, used to refresh a staged set after success
func ExtractMedia(response json.RawMessage) []*models.MediaItem {
	var rec Record
	if err := json.Unmarshal(response, &rec); err != nil {
		return nil
	}

	var items []*models.MediaItem
	for _, m := range rec.Media {
		items = append(items, &models.MediaItem{
			Origin:     models.OriginRemote,
			Name:       m.Name,
			MimeType:   m.MimeType,
			SizeBytes:  m.SizeBytes,
			PreviewURL: m.URL,
			RemoteID:   m.ID,
		})
	}
	return items
}
