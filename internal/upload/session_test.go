package upload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JuanRG-20221039/paulofraire-media/internal/models"
	"github.com/JuanRG-20221039/paulofraire-media/internal/preview"
	"github.com/JuanRG-20221039/paulofraire-media/internal/staging"
)

// capturedRequest records what the fake backend received
type capturedRequest struct {
	auth       string
	key        string
	fields     map[string]string
	fileNames  []string
	fileMimes  []string
	tombstones []string
}

// captureHandler parses one multipart submission and replies with status
// and body
func captureHandler(t *testing.T, got *capturedRequest, status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got.auth = r.Header.Get("Authorization")
		got.key = r.Header.Get("X-Idempotency-Key")

		require.NoError(t, r.ParseMultipartForm(32<<20))

		got.fields = make(map[string]string)
		for name, values := range r.MultipartForm.Value {
			if name == "imagesToDelete" {
				require.NoError(t, json.Unmarshal([]byte(values[0]), &got.tombstones))
				continue
			}
			got.fields[name] = values[0]
		}
		for _, fhs := range r.MultipartForm.File {
			for _, fh := range fhs {
				got.fileNames = append(got.fileNames, fh.Filename)
				got.fileMimes = append(got.fileMimes, fh.Header.Get("Content-Type"))
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func testOptions(token string) Options {
	return Options{
		FileField:   "images",
		DeleteField: "imagesToDelete",
		Timeout:     5 * time.Second,
		Token:       token,
	}
}

func newStagedSet(files ...*models.LocalFile) *staging.PendingMediaSet {
	set := staging.NewPendingMediaSet(preview.NewRegistry())
	set.AddLocal(files...)
	return set
}

func TestSession_Success(t *testing.T) {
	var got capturedRequest
	srv := httptest.NewServer(captureHandler(t, &got, http.StatusCreated, `{"id":"r1"}`))
	defer srv.Close()

	set := newStagedSet(
		models.NewBytesFile("a.png", "image/png", []byte("aaaa")),
		models.NewBytesFile("b.jpg", "image/jpeg", []byte("bbbbbb")),
	)

	session := NewSession(Target{Method: "POST", URL: srv.URL}, testOptions("secret"), zap.NewNop())
	out, err := session.Do(context.Background(), set, map[string]string{"title": "  Open day  "}, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, out.Kind)
	assert.JSONEq(t, `{"id":"r1"}`, string(out.Response))
	assert.Equal(t, StateSucceeded, session.State())

	assert.Equal(t, "Bearer secret", got.auth)
	assert.Equal(t, session.IdempotencyKey(), got.key)
	assert.Equal(t, "Open day", got.fields["title"], "scalar fields are trimmed before dispatch")
	assert.Equal(t, []string{"a.png", "b.jpg"}, got.fileNames)
	assert.Equal(t, []string{"image/png", "image/jpeg"}, got.fileMimes)

	// the session never clears the set; that is the caller's decision
	assert.Equal(t, 2, set.Count())
}

func TestSession_TombstonesSerializedVerbatim(t *testing.T) {
	var got capturedRequest
	srv := httptest.NewServer(captureHandler(t, &got, http.StatusOK, `{}`))
	defer srv.Close()

	set := staging.NewPendingMediaSet(preview.NewRegistry())
	set.AddRemote("srv-17", "/media/srv-17/old.png", 0)
	set.AddLocal(models.NewBytesFile("new.png", "image/png", []byte("nnnn")))
	require.NoError(t, set.RemoveAt(0))

	session := NewSession(Target{Method: "PUT", URL: srv.URL}, testOptions(""), zap.NewNop())
	out, err := session.Do(context.Background(), set, nil, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, out.Kind)
	assert.Equal(t, []string{"srv-17"}, got.tombstones,
		"the tombstoned identifier travels verbatim in the delete-list part")
	assert.Empty(t, got.auth, "no Authorization header without a token")
}

func TestSession_ServerRejected(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "message field extracted",
			status:      http.StatusBadRequest,
			body:        `{"message":"title already exists"}`,
			wantMessage: "title already exists",
		},
		{
			name:        "msg field extracted",
			status:      http.StatusBadRequest,
			body:        `{"msg":"capacity reached"}`,
			wantMessage: "capacity reached",
		},
		{
			name:        "error field extracted",
			status:      http.StatusConflict,
			body:        `{"error":"duplicate"}`,
			wantMessage: "duplicate",
		},
		{
			name:        "401 fallback",
			status:      http.StatusUnauthorized,
			body:        `{}`,
			wantMessage: "your session has expired, please sign in again",
		},
		{
			name:        "403 fallback",
			status:      http.StatusForbidden,
			body:        ``,
			wantMessage: "you do not have permission to perform this action",
		},
		{
			name:        "4xx fallback",
			status:      http.StatusUnprocessableEntity,
			body:        `not json`,
			wantMessage: "the request was rejected, please review the form",
		},
		{
			name:        "5xx fallback",
			status:      http.StatusInternalServerError,
			body:        `{}`,
			wantMessage: "the server encountered a problem, please try again later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got capturedRequest
			srv := httptest.NewServer(captureHandler(t, &got, tt.status, tt.body))
			defer srv.Close()

			set := newStagedSet(models.NewBytesFile("a.png", "image/png", []byte("aa")))
			session := NewSession(Target{Method: "POST", URL: srv.URL}, testOptions(""), zap.NewNop())

			out, err := session.Do(context.Background(), set, nil, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, models.OutcomeServerRejected, out.Kind)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.wantMessage, out.Message)
			assert.Equal(t, StateFailed, session.State())
			assert.Equal(t, 1, set.Count(), "the set stays intact for retry")
		})
	}
}

func TestSession_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	set := newStagedSet(models.NewBytesFile("a.png", "image/png", []byte("aaaa")))
	opts := testOptions("")
	opts.Timeout = 50 * time.Millisecond

	session := NewSession(Target{Method: "POST", URL: srv.URL}, opts, zap.NewNop())
	out, err := session.Do(context.Background(), set, nil, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeTransportFailure, out.Kind)
	assert.Equal(t, models.TransportTimeout, out.Transport)
	assert.Equal(t, StateFailed, session.State())
	assert.Equal(t, 1, set.Count(), "a timed-out submission leaves the set untouched")
}

func TestSession_NetworkUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nobody listening anymore

	set := newStagedSet(models.NewBytesFile("a.png", "image/png", []byte("aa")))
	session := NewSession(Target{Method: "POST", URL: srv.URL}, testOptions(""), zap.NewNop())

	out, err := session.Do(context.Background(), set, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeTransportFailure, out.Kind)
	assert.Equal(t, models.TransportUnreachable, out.Transport)
}

func TestSession_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	set := newStagedSet(models.NewBytesFile("a.png", "image/png", []byte("aa")))
	session := NewSession(Target{Method: "POST", URL: srv.URL}, testOptions(""), zap.NewNop())

	out, err := session.Do(ctx, set, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeTransportFailure, out.Kind)
	assert.Equal(t, models.TransportCanceled, out.Transport)
	assert.Equal(t, 1, set.Count())
}

func TestSession_PreconditionStopsDispatch(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	set := newStagedSet()
	session := NewSession(Target{Method: "POST", URL: srv.URL}, testOptions(""), zap.NewNop())

	preconds := []Precondition{
		RequireFields("title"),
		RequireMinItems(1, "a news story needs at least one image"),
	}
	out, err := session.Do(context.Background(), set, map[string]string{"title": "   "}, preconds, nil)

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeValidationRejected, out.Kind)
	require.NotNil(t, out.Rejection)
	assert.Contains(t, out.Rejection.Message(), "title")
	assert.Equal(t, 0, calls, "no network call happens on a precondition failure")
	assert.Equal(t, StateFailed, session.State())
}

func TestSession_ProgressMonotonic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(32 << 20)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	set := newStagedSet(models.NewBytesFile("a.bin", "image/png", make([]byte, 256<<10)))
	session := NewSession(Target{Method: "POST", URL: srv.URL}, testOptions(""), zap.NewNop())

	var percents []int
	out, err := session.Do(context.Background(), set, map[string]string{"title": "x"}, nil, func(p int) {
		percents = append(percents, p)
	})

	require.NoError(t, err)
	require.Equal(t, models.OutcomeSuccess, out.Kind)

	require.NotEmpty(t, percents)
	assert.Equal(t, 0, percents[0], "the session reports 0 at dispatch")
	assert.Equal(t, 100, percents[len(percents)-1])
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1],
			"progress must never regress: %v", percents)
	}
}

func TestSession_ReuseIsContractViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(32 << 20)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	set := newStagedSet(models.NewBytesFile("a.png", "image/png", []byte("aa")))
	session := NewSession(Target{Method: "POST", URL: srv.URL}, testOptions(""), zap.NewNop())

	_, err := session.Do(context.Background(), set, nil, nil, nil)
	require.NoError(t, err)

	_, err = session.Do(context.Background(), set, nil, nil, nil)
	assert.ErrorIs(t, err, ErrSessionUsed)
}

func TestSession_DistinctIdempotencyKeys(t *testing.T) {
	target := Target{Method: "POST", URL: "http://localhost"}
	first := NewSession(target, testOptions(""), zap.NewNop())
	second := NewSession(target, testOptions(""), zap.NewNop())

	assert.NotEmpty(t, first.IdempotencyKey())
	assert.NotEqual(t, first.IdempotencyKey(), second.IdempotencyKey(),
		"every attempt carries its own idempotency key")
}
