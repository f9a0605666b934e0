// Package upload drives one submit-and-report cycle against the CMS
// backend: it serializes the staged media set and scalar form fields into
// a multipart request, reports fractional progress, and resolves to a
// classified outcome. Expected network conditions are outcomes, not errors.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JuanRG-20221039/paulofraire-media/internal/models"
	"github.com/JuanRG-20221039/paulofraire-media/internal/staging"
)

// State tracks a session through its single attempt
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateDispatched State = "dispatched"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// ErrSessionUsed reports a second Do call on the same session. Failed is
// terminal per attempt; a retry is a new session over the same set.
var ErrSessionUsed = errors.New("upload: session already used")

// Target describes the backend operation one session submits to:
// POST for create, PUT for update
type Target struct {
	Method string
	URL    string
}

// Options configures one session. Every value comes from the call site's
// profile; nothing here is hardcoded per screen.
type Options struct {
	// FileField is the repeated form part name for local files, e.g. "images"
	FileField string
	// DeleteField is the form part carrying the JSON tombstone list,
	// e.g. "imagesToDelete"
	DeleteField string
	// Timeout bounds the whole request; video and bulk-image profiles
	// use minutes where scalar-weight profiles use seconds
	Timeout time.Duration
	// Token is the bearer credential, received as an opaque string from
	// the caller. The session never reads ambient storage.
	Token string
}

// Session performs one submit-and-report cycle. It never mutates the
// staged set; only the caller clears it, and only on success.
type Session struct {
	client *http.Client
	target Target
	opts   Options
	state  State
	key    string
	logger *zap.Logger
}

// NewSession creates a session for one attempt against target. Each
// session carries its own idempotency key so the backend can deduplicate
// a resubmission after an ambiguous failure.
func NewSession(target Target, opts Options, logger *zap.Logger) *Session {
	return &Session{
		client: &http.Client{},
		target: target,
		opts:   opts,
		state:  StateIdle,
		key:    uuid.New().String(),
		logger: logger,
	}
}

// SetHTTPClient replaces the underlying HTTP client, used by tests
func (s *Session) SetHTTPClient(c *http.Client) { s.client = c }

// State returns the session's current state
func (s *Session) State() State { return s.state }

// IdempotencyKey returns the key attached to this attempt's request
func (s *Session) IdempotencyKey() string { return s.key }

// Do runs the session: preconditions, serialization, dispatch and
// classification. The returned error is non-nil only for contract
// violations (reusing a finished session); every expected condition is
// expressed in the outcome.
func (s *Session) Do(
	ctx context.Context,
	set *staging.PendingMediaSet,
	fields map[string]string,
	preconds []Precondition,
	onProgress ProgressFunc,
) (models.UploadOutcome, error) {
	if s.state != StateIdle {
		return models.UploadOutcome{}, ErrSessionUsed
	}

	s.state = StateValidating

	trimmed := make(map[string]string, len(fields))
	for k, v := range fields {
		trimmed[k] = strings.TrimSpace(v)
	}

	for _, check := range preconds {
		if rej := check(trimmed, set.Items()); rej != nil {
			s.state = StateFailed
			return models.RejectedOutcome(rej), nil
		}
	}

	files := set.LocalFiles()
	tombstones := set.Tombstones()

	boundary := multipart.NewWriter(io.Discard).Boundary()
	total, err := s.payloadSize(boundary, trimmed, files, tombstones)
	if err != nil {
		s.state = StateFailed
		return models.UploadOutcome{}, fmt.Errorf("failed to measure payload: %w", err)
	}

	s.state = StateDispatched
	if onProgress != nil {
		onProgress(0)
	}

	tctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	body, contentType := s.streamPayload(boundary, trimmed, files, tombstones)
	// closing the read end unblocks the writer goroutine if the transport
	// aborts mid-transfer
	defer body.Close()

	req, err := http.NewRequestWithContext(tctx, s.target.Method, s.target.URL,
		newProgressReader(body, total, onProgress))
	if err != nil {
		s.state = StateFailed
		return models.UploadOutcome{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Idempotency-Key", s.key)
	if s.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.Token)
	}
	req.ContentLength = total

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.state = StateFailed
		kind := classifyTransport(err)
		s.logger.Warn("upload transport failure",
			zap.String("method", s.target.Method),
			zap.String("url", s.target.URL),
			zap.String("kind", string(kind)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return models.TransportOutcome(kind), nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		s.state = StateFailed
		return models.TransportOutcome(classifyTransport(err)), nil
	}

	s.logger.Info("upload completed",
		zap.String("method", s.target.Method),
		zap.String("url", s.target.URL),
		zap.Int("status", resp.StatusCode),
		zap.Int64("bytes", total),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.state = StateSucceeded
		return models.SuccessOutcome(payload), nil
	}

	s.state = StateFailed
	return models.ServerOutcome(resp.StatusCode, serverMessage(resp.StatusCode, payload)), nil
}

// payloadSize measures the exact multipart body size by writing the
// structure with empty file bodies and adding the known file sizes
func (s *Session) payloadSize(boundary string, fields map[string]string, files []*models.LocalFile, tombstones []string) (int64, error) {
	sw := &sizeWriter{}
	mw := multipart.NewWriter(sw)
	if err := mw.SetBoundary(boundary); err != nil {
		return 0, err
	}
	if err := s.writeParts(mw, fields, files, tombstones, false); err != nil {
		return 0, err
	}
	if err := mw.Close(); err != nil {
		return 0, err
	}

	total := sw.Size()
	for _, f := range files {
		total += f.SizeBytes
	}
	return total, nil
}

// streamPayload produces the real multipart body as a stream; nothing is
// buffered whole, so video-weight payloads do not sit in memory
func (s *Session) streamPayload(boundary string, fields map[string]string, files []*models.LocalFile, tombstones []string) (*io.PipeReader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	_ = mw.SetBoundary(boundary)

	go func() {
		if err := s.writeParts(mw, fields, files, tombstones, true); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := mw.Close(); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.Close()
	}()

	return pr, mw.FormDataContentType()
}

// writeParts emits every part in a deterministic order so the measuring
// pass and the streaming pass produce byte-identical framing: scalar
// fields sorted by name, then files in staging order, then the tombstone
// list. When withContent is false file bodies are skipped.
func (s *Session) writeParts(mw *multipart.Writer, fields map[string]string, files []*models.LocalFile, tombstones []string, withContent bool) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := mw.WriteField(name, fields[name]); err != nil {
			return err
		}
	}

	for _, f := range files {
		part, err := mw.CreatePart(filePartHeader(s.opts.FileField, f))
		if err != nil {
			return err
		}
		if !withContent {
			continue
		}
		rc, err := f.Source.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		_, err = io.Copy(part, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
	}

	if len(tombstones) > 0 {
		encoded, err := json.Marshal(tombstones)
		if err != nil {
			return err
		}
		if err := mw.WriteField(s.opts.DeleteField, string(encoded)); err != nil {
			return err
		}
	}

	return nil
}

// filePartHeader builds the MIME header for one file part, carrying the
// file's declared content type instead of application/octet-stream
func filePartHeader(field string, f *models.LocalFile) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
	h.Set("Content-Type", f.MimeType)
	return h
}

// classifyTransport maps a transport error to its outcome kind. A timeout
// is surfaced distinctly because the server-side effect is unknown: the
// user should verify by refreshing, not resubmit blindly.
func classifyTransport(err error) models.TransportKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.TransportTimeout
	case errors.Is(err, context.Canceled):
		return models.TransportCanceled
	default:
		return models.TransportUnreachable
	}
}

// errorBody is the shape backends use for human-readable failures
type errorBody struct {
	Message string `json:"message"`
	Msg     string `json:"msg"`
	Error   string `json:"error"`
}

// serverMessage extracts a human message from a failure response body,
// falling back to a generic message per status class
func serverMessage(status int, payload []byte) string {
	var body errorBody
	if err := json.Unmarshal(payload, &body); err == nil {
		for _, m := range []string{body.Message, body.Msg, body.Error} {
			if m != "" {
				return m
			}
		}
	}

	switch {
	case status == http.StatusUnauthorized:
		return "your session has expired, please sign in again"
	case status == http.StatusForbidden:
		return "you do not have permission to perform this action"
	case status >= 400 && status < 500:
		return "the request was rejected, please review the form"
	default:
		return "the server encountered a problem, please try again later"
	}
}
