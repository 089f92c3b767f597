package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-verifier/internal/database"
	"github.com/kozaktomas/face-verifier/internal/faceid"
)

// fakeService records the last request and returns canned results.
type fakeService struct {
	registerErr error
	verifyErr   error
	result      *faceid.Result

	lastRegister *faceid.RegisterRequest
	lastVerify   *faceid.VerifyRequest
}

func (s *fakeService) Register(ctx context.Context, req faceid.RegisterRequest) (*database.StoredIdentity, error) {
	s.lastRegister = &req
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &database.StoredIdentity{
		Identifier:  req.Identifier,
		DisplayName: req.DisplayName,
		Model:       "fake",
		Dim:         4,
	}, nil
}

func (s *fakeService) Verify(ctx context.Context, req faceid.VerifyRequest) (*faceid.Result, error) {
	s.lastVerify = &req
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	if s.result != nil {
		return s.result, nil
	}
	return &faceid.Result{Identifier: req.Identifier, Accepted: true, Distance: 0.2, Threshold: 0.6}, nil
}

// photoB64 is a base64 payload decoding to "photo-bytes".
var photoB64 = base64.StdEncoding.EncodeToString([]byte("photo-bytes"))

// jsonRequest creates a POST request with a JSON body
func jsonRequest(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONField checks a string field of a JSON object response
func assertJSONField(t *testing.T, recorder *httptest.ResponseRecorder, key, expected string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result[key] != expected {
		t.Errorf("expected %s '%s', got '%v'", key, expected, result[key])
	}
}
