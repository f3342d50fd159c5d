package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmezadev/Evaluacion-Postulantes/internal/admin"
	"github.com/rmezadev/Evaluacion-Postulantes/internal/auth"
	"github.com/rmezadev/Evaluacion-Postulantes/internal/config"
	"github.com/rmezadev/Evaluacion-Postulantes/internal/gate"
	"github.com/rmezadev/Evaluacion-Postulantes/internal/model"
	"github.com/rmezadev/Evaluacion-Postulantes/internal/session"
)

// Server is the thin JSON surface over the boundary operations. The
// login screen, applicant view and admin dashboard live elsewhere;
// everything they need goes through here.
type Server struct {
	cfg      config.Config
	gate     *gate.Gate
	sessions *session.Manager
	admin    *admin.Controller
}

func NewServer(cfg config.Config, g *gate.Gate, sessions *session.Manager, controller *admin.Controller) *Server {
	return &Server{
		cfg:      cfg,
		gate:     g,
		sessions: sessions,
		admin:    controller,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/login", s.handleLogin)

	r.With(s.authMiddleware, s.requireRole(model.RolePostulante)).Get("/session", s.handleGetSession)
	r.With(s.authMiddleware, s.requireRole(model.RolePostulante)).Post("/session/start", s.handleStartSession)
	r.With(s.authMiddleware, s.requireRole(model.RolePostulante)).Post("/session/attach", s.handleAttach)
	r.With(s.authMiddleware, s.requireRole(model.RolePostulante)).Post("/session/submit", s.handleSubmit)

	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Get("/applicants", s.handleListApplicants)
	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Post("/applicants", s.handleCreateApplicant)
	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Patch("/applicants/{applicantId}", s.handleEditApplicant)
	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Post("/applicants/{applicantId}/suspension", s.handleToggleSuspension)
	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Delete("/applicants/{applicantId}", s.handleDeleteApplicant)

	return r
}

// Auth

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			if claims.Role != string(role) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

// Models

type loginRequest struct {
	Email string `json:"email"`
}

type identitySummary struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	ApplicantID string `json:"applicantId,omitempty"`
}

type loginResponse struct {
	AccessToken string          `json:"access_token"`
	Identity    identitySummary `json:"identity"`
}

type applicantResponse struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	DownloadLink   string `json:"downloadLink"`
	Status         string `json:"status"`
	StartTime      *int64 `json:"startTime,omitempty"`
	EndTime        *int64 `json:"endTime,omitempty"`
	SubmissionLink string `json:"submissionLink,omitempty"`
	IsSuspended    bool   `json:"isSuspended"`
}

type sessionResponse struct {
	Applicant   applicantResponse `json:"applicant"`
	RemainingMS int64             `json:"remainingMs"`
}

type attachRequest struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

type submitRequest struct {
	Data string `json:"data"`
}

type createApplicantRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	DownloadLink string `json:"downloadLink"`
}

type editApplicantRequest struct {
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	DownloadLink *string `json:"downloadLink"`
}

// Handlers

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "missing_email")
		return
	}

	identity, err := s.gate.Resolve(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, gate.ErrNotRegistered):
			writeError(w, http.StatusUnauthorized, "not_registered")
		case errors.Is(err, gate.ErrSuspended):
			writeError(w, http.StatusForbidden, "access_suspended")
		default:
			writeError(w, http.StatusServiceUnavailable, "store_unavailable")
		}
		return
	}

	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		Role:        string(identity.Role),
		Email:       identity.Email,
		ApplicantID: identity.ApplicantID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		Identity: identitySummary{
			Role:        string(identity.Role),
			Email:       identity.Email,
			ApplicantID: identity.ApplicantID,
		},
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	applicant, err := s.sessions.Load(r.Context(), claims.ApplicantID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Applicant:   toApplicantResponse(*applicant),
		RemainingMS: s.sessions.Remaining(applicant).Milliseconds(),
	})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	applicant, err := s.sessions.Start(r.Context(), claims.ApplicantID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Applicant:   toApplicantResponse(*applicant),
		RemainingMS: s.sessions.Remaining(applicant).Milliseconds(),
	})
}

func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req attachRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Data == "" {
		writeError(w, http.StatusBadRequest, "missing_file")
		return
	}
	s.sessions.Attach(claims.ApplicantID, req.Name, req.Data)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	applicant, err := s.sessions.Submit(r.Context(), claims.ApplicantID, req.Data)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Applicant: toApplicantResponse(*applicant)})
}

func (s *Server) handleListApplicants(w http.ResponseWriter, r *http.Request) {
	applicants, err := s.admin.List(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "store_unavailable")
		return
	}
	out := make([]applicantResponse, 0, len(applicants))
	for _, applicant := range applicants {
		out = append(out, toApplicantResponse(applicant))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateApplicant(w http.ResponseWriter, r *http.Request) {
	var req createApplicantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	created, err := s.admin.Create(r.Context(), model.Applicant{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		DownloadLink: req.DownloadLink,
	})
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApplicantResponse(*created))
}

func (s *Server) handleEditApplicant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "applicantId")
	var req editApplicantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	updated, err := s.admin.Edit(r.Context(), id, model.ApplicantPatch{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		DownloadLink: req.DownloadLink,
	})
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicantResponse(*updated))
}

func (s *Server) handleToggleSuspension(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "applicantId")
	updated, err := s.admin.ToggleSuspension(r.Context(), id)
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicantResponse(*updated))
}

func (s *Server) handleDeleteApplicant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "applicantId")
	if err := s.admin.Delete(r.Context(), id); err != nil {
		writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Error mapping

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "applicant_not_found")
	case errors.Is(err, session.ErrCompleted):
		writeError(w, http.StatusConflict, "already_completed")
	case errors.Is(err, session.ErrSubmitInFlight):
		writeError(w, http.StatusConflict, "submission_in_flight")
	case errors.Is(err, session.ErrNotStarted):
		writeError(w, http.StatusConflict, "not_started")
	case errors.Is(err, session.ErrNoPayload):
		writeError(w, http.StatusBadRequest, "missing_file")
	default:
		writeError(w, http.StatusServiceUnavailable, "store_unavailable")
	}
}

func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, admin.ErrValidation):
		writeError(w, http.StatusBadRequest, "missing_fields")
	case errors.Is(err, admin.ErrNotFound):
		writeError(w, http.StatusNotFound, "applicant_not_found")
	default:
		writeError(w, http.StatusServiceUnavailable, "store_unavailable")
	}
}

func toApplicantResponse(applicant model.Applicant) applicantResponse {
	resp := applicantResponse{
		ID:           applicant.ID,
		FirstName:    applicant.FirstName,
		LastName:     applicant.LastName,
		Email:        applicant.Email,
		Phone:        applicant.Phone,
		DownloadLink: applicant.DownloadLink,
		Status:       string(applicant.Status),
		StartTime:    applicant.StartTime,
		EndTime:      applicant.EndTime,
		IsSuspended:  applicant.IsSuspended,
	}
	if applicant.SubmissionLink != nil {
		resp.SubmissionLink = *applicant.SubmissionLink
	}
	return resp
}

// Utilities

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
