package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/face-verifier/internal/faceid"
)

func newTestIdentitiesHandler(svc *fakeService, hide bool) *IdentitiesHandler {
	return NewIdentitiesHandler(svc, zerolog.Nop(), hide)
}

func TestIdentitiesHandler_Register_Success(t *testing.T) {
	svc := &fakeService{}
	handler := newTestIdentitiesHandler(svc, true)

	recorder := httptest.NewRecorder()
	handler.Register(recorder, jsonRequest(t, "/api/v1/identities", map[string]string{
		"identifier":   "alice@example.com",
		"display_name": "Alice",
		"credential":   "secret",
		"photo":        "data:image/jpeg;base64," + photoB64,
	}))

	assertStatusCode(t, recorder, http.StatusCreated)
	assertContentType(t, recorder, "application/json")

	var resp IdentityResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Identifier != "alice@example.com" || resp.DisplayName != "Alice" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if string(svc.lastRegister.Photo) != "photo-bytes" {
		t.Errorf("photo was not decoded, got %q", svc.lastRegister.Photo)
	}
	if strings.Contains(recorder.Body.String(), "secret") {
		t.Error("credential must not be echoed")
	}
}

func TestIdentitiesHandler_Register_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"identifier":`},
		{"missing photo", `{"identifier":"a","display_name":"A","credential":"x"}`},
		{"missing credential", `{"identifier":"a","display_name":"A","photo":"` + photoB64 + `"}`},
		{"bad base64", `{"identifier":"a","display_name":"A","credential":"x","photo":"%%%"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			recorder := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/identities", strings.NewReader(tt.body))

			newTestIdentitiesHandler(svc, true).Register(recorder, req)

			assertStatusCode(t, recorder, http.StatusBadRequest)
			if svc.lastRegister != nil {
				t.Error("service must not be called for a bad request")
			}
		})
	}
}

func TestIdentitiesHandler_Register_ServiceErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{fmt.Errorf("extract embedding: %w", faceid.ErrNoFaceDetected), http.StatusBadRequest},
		{faceid.ErrDuplicateIdentity, http.StatusConflict},
		{faceid.ErrDuplicateFace, http.StatusConflict},
		{faceid.ErrExtractorBusy, http.StatusServiceUnavailable},
		{faceid.ErrStorage, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(faceid.Outcome(tt.err), func(t *testing.T) {
			recorder := httptest.NewRecorder()
			newTestIdentitiesHandler(&fakeService{registerErr: tt.err}, true).Register(recorder,
				jsonRequest(t, "/api/v1/identities", RegisterRequest{
					Identifier: "a", DisplayName: "A", Credential: "x", Photo: photoB64,
				}))
			assertStatusCode(t, recorder, tt.wantStatus)
		})
	}
}

func TestIdentitiesHandler_Verify(t *testing.T) {
	tests := []struct {
		name       string
		svc        *fakeService
		hide       bool
		wantStatus int
		wantError  string
	}{
		{
			name:       "accepted",
			svc:        &fakeService{},
			wantStatus: http.StatusOK,
		},
		{
			name:       "rejected",
			svc:        &fakeService{result: &faceid.Result{Identifier: "alice", Accepted: false, Distance: 0.9, Threshold: 0.6}},
			wantStatus: http.StatusForbidden,
			wantError:  "face does not match",
		},
		{
			name:       "not found hidden",
			svc:        &fakeService{verifyErr: faceid.ErrIdentityNotFound},
			hide:       true,
			wantStatus: http.StatusForbidden,
			wantError:  errVerificationFailed,
		},
		{
			name:       "bad credential hidden",
			svc:        &fakeService{verifyErr: faceid.ErrInvalidCredential},
			hide:       true,
			wantStatus: http.StatusForbidden,
			wantError:  errVerificationFailed,
		},
		{
			name:       "not found shown",
			svc:        &fakeService{verifyErr: faceid.ErrIdentityNotFound},
			wantStatus: http.StatusNotFound,
			wantError:  "identity not found",
		},
		{
			name:       "timeout",
			svc:        &fakeService{verifyErr: faceid.ErrExtractionTimeout},
			wantStatus: http.StatusGatewayTimeout,
			wantError:  "face extraction timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			newTestIdentitiesHandler(tt.svc, tt.hide).Verify(recorder, jsonRequest(t, "/api/v1/verify", VerifyRequest{
				Identifier: "alice", Credential: "secret", Photo: photoB64,
			}))

			assertStatusCode(t, recorder, tt.wantStatus)
			if tt.wantError != "" {
				assertJSONField(t, recorder, "error", tt.wantError)
			}
		})
	}
}

func TestIdentitiesHandler_Verify_ResponseBody(t *testing.T) {
	recorder := httptest.NewRecorder()
	newTestIdentitiesHandler(&fakeService{}, true).Verify(recorder, jsonRequest(t, "/api/v1/verify", VerifyRequest{
		Identifier: "alice", Credential: "secret", Photo: photoB64,
	}))

	var resp VerifyResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Accepted || resp.Distance != 0.2 || resp.Threshold != 0.6 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestIdentitiesHandler_LegacyRegister(t *testing.T) {
	svc := &fakeService{}
	recorder := httptest.NewRecorder()
	newTestIdentitiesHandler(svc, true).LegacyRegister(recorder, jsonRequest(t, "/api/register", LegacyRegisterRequest{
		Name: "Alice", Email: "alice@example.com", Password: "secret", Photo: "data:image/png;base64," + photoB64,
	}))

	assertStatusCode(t, recorder, http.StatusCreated)
	assertJSONField(t, recorder, "message", "Registered successfully.")
	if svc.lastRegister.Identifier != "alice@example.com" || svc.lastRegister.DisplayName != "Alice" {
		t.Errorf("fields not mapped: %+v", svc.lastRegister)
	}
}

func TestIdentitiesHandler_LegacyRegister_MissingFields(t *testing.T) {
	svc := &fakeService{}
	recorder := httptest.NewRecorder()
	newTestIdentitiesHandler(svc, true).LegacyRegister(recorder, jsonRequest(t, "/api/register", LegacyRegisterRequest{
		Name: "Alice", Email: "alice@example.com", Photo: photoB64,
	}))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONField(t, recorder, "message", "All fields are required.")
	if svc.lastRegister != nil {
		t.Error("service must not be called")
	}
}

func TestIdentitiesHandler_LegacyEnroll(t *testing.T) {
	tests := []struct {
		name       string
		svc        *fakeService
		wantStatus int
		wantMsg    string
	}{
		{"accepted", &fakeService{}, http.StatusOK, "Enrollment successful."},
		{"rejected", &fakeService{result: &faceid.Result{Accepted: false, Distance: 0.8}}, http.StatusForbidden, "Face does not match."},
		{"no face", &fakeService{verifyErr: faceid.ErrNoFaceDetected}, http.StatusBadRequest, "no face detected in the provided image"},
		{"not found", &fakeService{verifyErr: faceid.ErrIdentityNotFound}, http.StatusNotFound, "identity not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			newTestIdentitiesHandler(tt.svc, false).LegacyEnroll(recorder, jsonRequest(t, "/api/enroll", LegacyEnrollRequest{
				Email: "alice@example.com", Password: "secret", Photo: photoB64,
			}))

			assertStatusCode(t, recorder, tt.wantStatus)
			assertJSONField(t, recorder, "message", tt.wantMsg)
		})
	}
}
