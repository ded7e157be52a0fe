package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maniishbhusal/TrustChain/internal/config"
	"github.com/maniishbhusal/TrustChain/internal/db"
	"github.com/maniishbhusal/TrustChain/internal/pipeline"
	"github.com/maniishbhusal/TrustChain/internal/resume"
	"github.com/maniishbhusal/TrustChain/internal/types"
)

type fakePipeline struct {
	got     pipeline.Input
	outcome *pipeline.Outcome
	err     error
}

func (f *fakePipeline) Verify(_ context.Context, in pipeline.Input) (*pipeline.Outcome, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	out := *f.outcome
	out.GitHubUsername = in.Username
	return &out, nil
}

type fakeStore struct {
	records map[uuid.UUID]*db.Verification
	pingErr error
	getErr  error
	listFor string
	limit   int
}

func (f *fakeStore) GetVerification(_ context.Context, id uuid.UUID) (*db.Verification, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.records[id], nil
}

func (f *fakeStore) ListVerifications(_ context.Context, username string, limit int) ([]db.Verification, error) {
	f.listFor, f.limit = username, limit
	out := []db.Verification{}
	for _, v := range f.records {
		if v.GitHubUsername == username {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error {
	return f.pingErr
}

func fakeExtract(text string, err error) TextExtractor {
	return func(r io.ReaderAt, size int64) (string, error) {
		return text, err
	}
}

func sampleOutcome() *pipeline.Outcome {
	return &pipeline.Outcome{
		ID:           uuid.MustParse("4b3f1c62-8d7a-4f0e-9c55-2a1e7b0d9f10"),
		ResumeSkills: []string{"Go", "Rust"},
		GitHubSkills: []string{"Go"},
		Result: types.VerificationResult{
			VerifiedSkills:         []string{"Go"},
			UnverifiedSkills:       []string{"Rust"},
			AdditionalSkills:       []string{},
			VerificationPercentage: 50,
			Explanation:            "basic",
			Method:                 types.MethodBasic,
		},
		VerificationHash: "deadbeef",
	}
}

type testServer struct {
	*Server
	pipeline *fakePipeline
	store    *fakeStore
}

func newTestServer(t *testing.T, store *fakeStore, extract TextExtractor, rl config.RateLimitConfig) *testServer {
	t.Helper()
	fp := &fakePipeline{outcome: sampleOutcome()}
	nop := zerolog.Nop()
	deps := Deps{Pipeline: fp, ExtractText: extract, Logger: &nop}
	if store != nil {
		deps.Store = store
	}
	s, err := New(config.ServerConfig{Port: 0, MaxUploadBytes: 1 << 20, RateLimit: rl}, deps)
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)
	return &testServer{Server: s, pipeline: fp, store: store}
}

func uploadRequest(t *testing.T, username, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if username != "" {
		require.NoError(t, mw.WriteField(FieldGitHubUsername, username))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile(FieldResume, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/verify-skills/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = "192.0.2.1:1234"
	return req
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestVerifySkills_Created(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, fakeExtract("Go and Rust developer", nil), config.RateLimitConfig{})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, uploadRequest(t, "octocat", "cv.PDF", []byte("%PDF-1.4")))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "octocat", s.pipeline.got.Username)
	assert.Equal(t, "Go and Rust developer", s.pipeline.got.ResumeText)

	var resp VerifyResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "4b3f1c62-8d7a-4f0e-9c55-2a1e7b0d9f10", resp.ID)
	assert.Equal(t, "octocat", resp.GitHubUsername)
	assert.Equal(t, []string{"Go", "Rust"}, resp.ResumeSkills)
	assert.Equal(t, []string{"Go"}, resp.GitHubSkills)
	assert.Equal(t, 50.0, resp.Result.VerificationPercentage)
	assert.Equal(t, "deadbeef", resp.VerificationHash)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestVerifySkills_UnpersistedOmitsID(t *testing.T) {
	s := newTestServer(t, nil, fakeExtract("Go", nil), config.RateLimitConfig{})
	s.pipeline.outcome.ID = uuid.Nil

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, uploadRequest(t, "octocat", "cv.pdf", []byte("%PDF")))

	require.Equal(t, http.StatusCreated, rr.Code)
	_, hasID := decode(t, rr)["id"]
	assert.False(t, hasID)
}

func TestVerifySkills_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		username string
		filename string
		wantMsg  string
	}{
		{"missing username", "", "cv.pdf", "github_username - is required"},
		{"leading hyphen", "-octocat", "cv.pdf", "github_username"},
		{"double hyphen", "octo--cat", "cv.pdf", "github_username"},
		{"too long", strings.Repeat("a", 40), "cv.pdf", "github_username"},
		{"underscore", "octo_cat", "cv.pdf", "github_username"},
		{"missing file", "octocat", "", "resume - a PDF file is required"},
		{"not a pdf", "octocat", "cv.docx", "resume - must be a .pdf file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil, fakeExtract("Go", nil), config.RateLimitConfig{})
			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, uploadRequest(t, tt.username, tt.filename, []byte("%PDF")))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, decode(t, rr)["error"], tt.wantMsg)
			assert.Empty(t, s.pipeline.got.Username, "pipeline must not run")
		})
	}
}

func TestVerifySkills_NotMultipart(t *testing.T) {
	s := newTestServer(t, nil, fakeExtract("Go", nil), config.RateLimitConfig{})
	req := httptest.NewRequest(http.MethodPost, "/verify-skills/", strings.NewReader(`{"github_username":"octocat"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVerifySkills_UploadTooLarge(t *testing.T) {
	s := newTestServer(t, nil, fakeExtract("Go", nil), config.RateLimitConfig{})
	oversized := bytes.Repeat([]byte("a"), 2<<20)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, uploadRequest(t, "octocat", "cv.pdf", oversized))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "upload exceeds 1048576 bytes", decode(t, rr)["error"])
	assert.Empty(t, s.pipeline.got.Username)
}

func TestVerifySkills_UnreadablePDF(t *testing.T) {
	s := newTestServer(t, nil, fakeExtract("", &resume.ParseError{Message: "not a PDF"}), config.RateLimitConfig{})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, uploadRequest(t, "octocat", "cv.pdf", []byte("garbage")))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, decode(t, rr)["error"], "not a PDF")
}

func TestVerifySkills_PipelineFailureHidesDetails(t *testing.T) {
	s := newTestServer(t, nil, fakeExtract("Go", nil), config.RateLimitConfig{})
	s.pipeline.err = errors.New("storing verification failed: password authentication failed")

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, uploadRequest(t, "octocat", "cv.pdf", []byte("%PDF")))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal server error", decode(t, rr)["error"])
}

func TestVerifySkills_RateLimited(t *testing.T) {
	rl := config.RateLimitConfig{
		Enabled: true, DefaultLimit: 100, DefaultWindow: time.Minute,
		VerifyLimit: 1, VerifyWindow: time.Hour, VerifyBurst: 1,
	}
	s := newTestServer(t, nil, fakeExtract("Go", nil), rl)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, uploadRequest(t, "octocat", "cv.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Limit"))

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, uploadRequest(t, "octocat", "cv.pdf", []byte("%PDF")))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode(t, rr)["error"])
}

func TestGetVerification(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{records: map[uuid.UUID]*db.Verification{
		id: {ID: id, GitHubUsername: "octocat", ResumeSkills: []string{"Go"}, GitHubSkills: []string{"Go"},
			Result: types.VerificationResult{Method: types.MethodLLM}, VerificationHash: "abc"},
	}}
	s := newTestServer(t, store, fakeExtract("", nil), config.RateLimitConfig{})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/verification/" + id.String() + "/", http.StatusOK},
		{"bad id", "/verification/not-a-uuid/", http.StatusBadRequest},
		{"missing", "/verification/" + uuid.NewString() + "/", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rr.Code)
		})
	}

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/verification/"+id.String()+"/", nil))
	var got db.Verification
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "abc", got.VerificationHash)
}

func TestGetVerification_StoreErrors(t *testing.T) {
	s := newTestServer(t, &fakeStore{getErr: errors.New("conn reset")}, fakeExtract("", nil), config.RateLimitConfig{})
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/verification/"+uuid.NewString()+"/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	noStore := newTestServer(t, nil, fakeExtract("", nil), config.RateLimitConfig{})
	rr = httptest.NewRecorder()
	noStore.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/verification/"+uuid.NewString()+"/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestListVerifications(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{records: map[uuid.UUID]*db.Verification{id: {ID: id, GitHubUsername: "octocat"}}}
	s := newTestServer(t, store, fakeExtract("", nil), config.RateLimitConfig{})

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/verifications/?github_username=octocat&limit=5", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "octocat", store.listFor)
	assert.Equal(t, 5, store.limit)
	assert.Len(t, decode(t, rr)["verifications"], 1)

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/verifications/?github_username=octocat&limit=500", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/verifications/", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, fakeExtract("", nil), config.RateLimitConfig{})
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode(t, rr)["database"])

	down := newTestServer(t, &fakeStore{pingErr: errors.New("down")}, fakeExtract("", nil), config.RateLimitConfig{})
	rr = httptest.NewRecorder()
	down.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	none := newTestServer(t, nil, fakeExtract("", nil), config.RateLimitConfig{})
	rr = httptest.NewRecorder()
	none.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "disabled", decode(t, rr)["database"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil, fakeExtract("", nil), config.RateLimitConfig{})
	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `trustchain_http_requests_total{route="GET /health",status="200"}`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil, fakeExtract("", nil), config.RateLimitConfig{})
	req := httptest.NewRequest(http.MethodOptions, "/verify-skills/", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, nil, fakeExtract("", nil), config.RateLimitConfig{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNew_RequiresPipelineAndExtractor(t *testing.T) {
	_, err := New(config.ServerConfig{}, Deps{})
	assert.Error(t, err)
	_, err = New(config.ServerConfig{}, Deps{Pipeline: &fakePipeline{}})
	assert.Error(t, err)
}
