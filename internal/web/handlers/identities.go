package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kozaktomas/face-verifier/internal/database"
	"github.com/kozaktomas/face-verifier/internal/faceid"
)

// IdentityService is the part of faceid.Service the HTTP layer uses.
type IdentityService interface {
	Register(ctx context.Context, req faceid.RegisterRequest) (*database.StoredIdentity, error)
	Verify(ctx context.Context, req faceid.VerifyRequest) (*faceid.Result, error)
}

// IdentitiesHandler handles registration and verification endpoints.
type IdentitiesHandler struct {
	service        IdentityService
	log            zerolog.Logger
	hideAuthReason bool
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(service IdentityService, log zerolog.Logger, hideAuthReason bool) *IdentitiesHandler {
	return &IdentitiesHandler{
		service:        service,
		log:            log,
		hideAuthReason: hideAuthReason,
	}
}

// RegisterRequest is the body of POST /api/v1/identities.
type RegisterRequest struct {
	Identifier  string `json:"identifier" validate:"required,max=320"`
	DisplayName string `json:"display_name" validate:"required,max=200"`
	Credential  string `json:"credential" validate:"required,max=72"`
	Photo       string `json:"photo" validate:"required"`
}

// IdentityResponse describes a registered identity.
type IdentityResponse struct {
	ID          string    `json:"id"`
	Identifier  string    `json:"identifier"`
	DisplayName string    `json:"display_name"`
	Model       string    `json:"model"`
	Dim         int       `json:"dim"`
	CreatedAt   time.Time `json:"created_at"`
}

// VerifyRequest is the body of POST /api/v1/verify.
type VerifyRequest struct {
	Identifier string `json:"identifier" validate:"required,max=320"`
	Credential string `json:"credential" validate:"required,max=72"`
	Photo      string `json:"photo" validate:"required"`
}

// VerifyResponse is the outcome of a completed verification.
type VerifyResponse struct {
	Identifier string  `json:"identifier"`
	Accepted   bool    `json:"accepted"`
	Distance   float64 `json:"distance"`
	Threshold  float64 `json:"threshold"`
	Error      string  `json:"error,omitempty"`
}

// Register handles POST /api/v1/identities.
func (h *IdentitiesHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if msg, ok := decodeRequest(r, &req); !ok {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	photo, err := decodePhoto(req.Photo)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	identity, err := h.service.Register(r.Context(), faceid.RegisterRequest{
		Identifier:  req.Identifier,
		DisplayName: req.DisplayName,
		Credential:  req.Credential,
		Photo:       photo,
	})
	if err != nil {
		status, msg := errorStatus(err, h.hideAuthReason)
		logServiceError(h.log, status, "register", err)
		respondError(w, status, msg)
		return
	}

	respondJSON(w, http.StatusCreated, IdentityResponse{
		ID:          identity.ID.String(),
		Identifier:  identity.Identifier,
		DisplayName: identity.DisplayName,
		Model:       identity.Model,
		Dim:         identity.Dim,
		CreatedAt:   identity.CreatedAt,
	})
}

// Verify handles POST /api/v1/verify. A rejected face is 403 with the
// distance in the body.
func (h *IdentitiesHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if msg, ok := decodeRequest(r, &req); !ok {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	photo, err := decodePhoto(req.Photo)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Verify(r.Context(), faceid.VerifyRequest{
		Identifier: req.Identifier,
		Credential: req.Credential,
		Photo:      photo,
	})
	if err != nil {
		status, msg := errorStatus(err, h.hideAuthReason)
		logServiceError(h.log, status, "verify", err)
		respondError(w, status, msg)
		return
	}

	resp := VerifyResponse{
		Identifier: result.Identifier,
		Accepted:   result.Accepted,
		Distance:   result.Distance,
		Threshold:  result.Threshold,
	}
	if !result.Accepted {
		resp.Error = "face does not match"
		respondJSON(w, http.StatusForbidden, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// LegacyRegisterRequest is the body of POST /api/register.
type LegacyRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Photo    string `json:"photo"`
}

// LegacyEnrollRequest is the body of POST /api/enroll.
type LegacyEnrollRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Photo    string `json:"photo"`
}

// respondMessage sends the {"message": ...} body used by the legacy endpoints.
func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// LegacyRegister handles POST /api/register. The email is the identifier.
func (h *IdentitiesHandler) LegacyRegister(w http.ResponseWriter, r *http.Request) {
	var req LegacyRegisterRequest
	if msg, ok := decodeRequest(r, &req); !ok {
		respondMessage(w, http.StatusBadRequest, msg)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Photo == "" {
		respondMessage(w, http.StatusBadRequest, "All fields are required.")
		return
	}
	photo, err := decodePhoto(req.Photo)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err = h.service.Register(r.Context(), faceid.RegisterRequest{
		Identifier:  req.Email,
		DisplayName: req.Name,
		Credential:  req.Password,
		Photo:       photo,
	})
	if err != nil {
		status, msg := errorStatus(err, h.hideAuthReason)
		logServiceError(h.log, status, "legacy register", err)
		respondMessage(w, status, msg)
		return
	}
	respondMessage(w, http.StatusCreated, "Registered successfully.")
}

// LegacyEnroll handles POST /api/enroll, the verification endpoint of the
// original API.
func (h *IdentitiesHandler) LegacyEnroll(w http.ResponseWriter, r *http.Request) {
	var req LegacyEnrollRequest
	if msg, ok := decodeRequest(r, &req); !ok {
		respondMessage(w, http.StatusBadRequest, msg)
		return
	}
	if req.Email == "" || req.Password == "" || req.Photo == "" {
		respondMessage(w, http.StatusBadRequest, "All fields are required.")
		return
	}
	photo, err := decodePhoto(req.Photo)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Verify(r.Context(), faceid.VerifyRequest{
		Identifier: req.Email,
		Credential: req.Password,
		Photo:      photo,
	})
	if err != nil {
		status, msg := errorStatus(err, h.hideAuthReason)
		logServiceError(h.log, status, "legacy enroll", err)
		respondMessage(w, status, msg)
		return
	}
	if !result.Accepted {
		respondMessage(w, http.StatusForbidden, "Face does not match.")
		return
	}
	respondMessage(w, http.StatusOK, "Enrollment successful.")
}
