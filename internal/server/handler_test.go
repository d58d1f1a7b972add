package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"veriprompt/internal/generate"
	"veriprompt/internal/pipeline"
	"veriprompt/internal/traits"
)

type fakeRunner struct {
	result *pipeline.Result
	err    error
	prompt string
}

func (f *fakeRunner) Run(ctx context.Context, prompt string) (*pipeline.Result, error) {
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestServer(r Runner) http.Handler {
	h := NewHandler(r, zap.NewNop())
	return CORS(NewMux(h))
}

func TestGenerateSuccess(t *testing.T) {
	runner := &fakeRunner{result: &pipeline.Result{
		MetadataHash:           "abc123",
		IPFSImageCID:           "QmImg",
		IPFSImageGatewayURL:    "https://gw/ipfs/QmImg",
		IPFSMetadataCID:        "QmMeta",
		IPFSMetadataGatewayURL: "https://gw/ipfs/QmMeta",
		OriginalPrompt:         "a red fox",
		Attributes:             []traits.Trait{{Name: "original_prompt", Value: "a red fox"}},
	}}
	srv := newTestServer(runner)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"prompt":"a red fox"}`))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "a red fox", runner.prompt)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "abc123", body["metadataHash"])
	require.Equal(t, "QmImg", body["ipfsImageCid"])
	require.Equal(t, "a red fox", body["original_prompt"])
	require.NotContains(t, body, "imageUrl")
}

func TestGenerateEmptyPrompt(t *testing.T) {
	srv := newTestServer(&fakeRunner{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"prompt":""}`))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "No prompt provided.")
}

func TestGenerateInvalidBody(t *testing.T) {
	srv := newTestServer(&fakeRunner{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{not json`))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateCapacityExhausted(t *testing.T) {
	err := &generate.TransientError{Kind: generate.KindCapacityExhausted, Err: errors.New("RESOURCE_EXHAUSTED")}
	srv := newTestServer(&fakeRunner{err: err})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"prompt":"p"}`))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "temporarily saturated")
}

func TestGenerateDeadlineExceeded(t *testing.T) {
	err := &generate.TransientError{Kind: generate.KindDeadlineExceeded, Err: errors.New("DEADLINE_EXCEEDED")}
	srv := newTestServer(&fakeRunner{err: err})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"prompt":"p"}`))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	require.Contains(t, rec.Body.String(), "timed out")
}

func TestGenerateGenericFailureHidesDetail(t *testing.T) {
	srv := newTestServer(&fakeRunner{err: errors.New("pinata exploded: secret detail")})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"prompt":"p"}`))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Failed to process request.")
	require.NotContains(t, rec.Body.String(), "secret detail")
}

func TestPreflightReturns204NoBody(t *testing.T) {
	srv := newTestServer(&fakeRunner{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/generate", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "POST", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestGenerateRejectsGet(t *testing.T) {
	srv := newTestServer(&fakeRunner{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/generate", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeRunner{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}
