package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-verifier/internal/faceid"
)

func TestRespondJSON_SetsStatusAndContentType(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"Created", http.StatusCreated},
		{"Forbidden", http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, map[string]string{"status": "ok"})

			assertStatusCode(t, recorder, tc.statusCode)
			assertContentType(t, recorder, "application/json")
		})
	}
}

func TestRespondError_ContainsErrorKey(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusBadRequest, "something went wrong")

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONField(t, recorder, "error", "something went wrong")
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertJSONField(t, recorder, "status", "ok")
}

func TestDecodePhoto(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x10, 0xFB, 0xFF}
	std := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"data url", "data:image/jpeg;base64," + std, false},
		{"bare std", std, false},
		{"raw std", base64.RawStdEncoding.EncodeToString(raw), false},
		{"url alphabet", base64.URLEncoding.EncodeToString(raw), false},
		{"raw url alphabet", base64.RawURLEncoding.EncodeToString(raw), false},
		{"line wrapped", std[:4] + "\n" + std[4:], false},
		{"data url without comma", "data:image/jpeg;base64", true},
		{"empty payload", "data:image/png;base64,", true},
		{"not base64", "%%%not-base64%%%", true},
		{"blank", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodePhoto(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != string(raw) {
				t.Errorf("decoded %v, want %v", got, raw)
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("extract embedding: %w", err) }

	tests := []struct {
		name       string
		err        error
		hide       bool
		wantStatus int
		wantMsg    string
	}{
		{"validation", fmt.Errorf("%w: missing photo", faceid.ErrValidation), true, http.StatusBadRequest, "validation failed: missing photo"},
		{"invalid image", wrap(faceid.ErrInvalidImage), true, http.StatusBadRequest, "invalid image"},
		{"no face", wrap(faceid.ErrNoFaceDetected), true, http.StatusBadRequest, "no face detected in the provided image"},
		{"multiple faces", wrap(faceid.ErrMultipleFaces), true, http.StatusBadRequest, "multiple faces detected in the provided image"},
		{"duplicate identity", faceid.ErrDuplicateIdentity, true, http.StatusConflict, "identity already registered"},
		{"duplicate face", faceid.ErrDuplicateFace, true, http.StatusConflict, "face already registered to another identity"},
		{"not found hidden", faceid.ErrIdentityNotFound, true, http.StatusForbidden, errVerificationFailed},
		{"bad credential hidden", faceid.ErrInvalidCredential, true, http.StatusForbidden, errVerificationFailed},
		{"not found shown", faceid.ErrIdentityNotFound, false, http.StatusNotFound, "identity not found"},
		{"bad credential shown", faceid.ErrInvalidCredential, false, http.StatusForbidden, "invalid credential"},
		{"busy", wrap(faceid.ErrExtractorBusy), true, http.StatusServiceUnavailable, "face extractor busy, retry later"},
		{"timeout", wrap(faceid.ErrExtractionTimeout), true, http.StatusGatewayTimeout, "face extraction timed out"},
		{"storage", fmt.Errorf("%w: connection refused to 10.0.0.5", faceid.ErrStorage), true, http.StatusInternalServerError, "internal error"},
		{"unknown", errors.New("boom"), true, http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := errorStatus(tt.err, tt.hide)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if msg != tt.wantMsg {
				t.Errorf("message = %q, want %q", msg, tt.wantMsg)
			}
			if strings.Contains(msg, "10.0.0.5") {
				t.Error("infrastructure details leaked to the client")
			}
		})
	}
}
