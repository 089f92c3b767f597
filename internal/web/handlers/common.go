package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/kozaktomas/face-verifier/internal/faceid"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// errVerificationFailed is returned for unknown identities and wrong
// credentials when failure reasons are hidden.
const errVerificationFailed = "verification failed"

var validate = validator.New(validator.WithRequiredStructEnabled())

var errInvalidPhoto = errors.New("photo is not valid base64")

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeRequest decodes a JSON body into dst and validates its struct tags.
// The returned message is safe to show to the client.
func decodeRequest(r *http.Request, dst any) (string, bool) {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return fmt.Sprintf("request body exceeds %d bytes", maxBytes.Limit), false
		}
		return errInvalidRequestBody, false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return "invalid fields: " + strings.Join(fields, ", "), false
		}
		return errInvalidRequestBody, false
	}
	return "", true
}

// decodePhoto accepts a data URL or bare base64 in the standard or URL
// alphabet, padded or not.
func decodePhoto(photo string) ([]byte, error) {
	photo = strings.TrimSpace(photo)
	if strings.HasPrefix(photo, "data:") {
		_, payload, ok := strings.Cut(photo, ",")
		if !ok {
			return nil, errInvalidPhoto
		}
		photo = payload
	}
	photo = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, photo)
	if photo == "" {
		return nil, errInvalidPhoto
	}

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		if data, err := enc.DecodeString(photo); err == nil {
			return data, nil
		}
	}
	return nil, errInvalidPhoto
}

// errorStatus maps a pipeline error to an HTTP status and a client message.
// Infrastructure errors get a generic message.
func errorStatus(err error, hideAuthReason bool) (int, string) {
	switch {
	case errors.Is(err, faceid.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, faceid.ErrInvalidImage):
		return http.StatusBadRequest, "invalid image"
	case errors.Is(err, faceid.ErrNoFaceDetected):
		return http.StatusBadRequest, "no face detected in the provided image"
	case errors.Is(err, faceid.ErrMultipleFaces):
		return http.StatusBadRequest, "multiple faces detected in the provided image"
	case errors.Is(err, faceid.ErrDuplicateIdentity):
		return http.StatusConflict, "identity already registered"
	case errors.Is(err, faceid.ErrDuplicateFace):
		return http.StatusConflict, "face already registered to another identity"
	case errors.Is(err, faceid.ErrIdentityNotFound):
		if hideAuthReason {
			return http.StatusForbidden, errVerificationFailed
		}
		return http.StatusNotFound, "identity not found"
	case errors.Is(err, faceid.ErrInvalidCredential):
		if hideAuthReason {
			return http.StatusForbidden, errVerificationFailed
		}
		return http.StatusForbidden, "invalid credential"
	case errors.Is(err, faceid.ErrExtractorBusy):
		return http.StatusServiceUnavailable, "face extractor busy, retry later"
	case errors.Is(err, faceid.ErrExtractionTimeout):
		return http.StatusGatewayTimeout, "face extraction timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// logServiceError logs infrastructure failures. Client errors are logged at debug.
func logServiceError(log zerolog.Logger, status int, op string, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("op", op).Int("status", status).Msg("request failed")
		return
	}
	log.Debug().Err(err).Str("op", op).Int("status", status).Msg("request rejected")
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
