// ABOUTME: HTTP API handlers for authentication, principals and ECG recordings
// ABOUTME: Translates service errors into {"detail": ...} JSON responses

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/ecg-gateway/internal/admin"
	"github.com/2389/ecg-gateway/internal/assets"
	"github.com/2389/ecg-gateway/internal/auth"
	"github.com/2389/ecg-gateway/internal/recordings"
	"github.com/2389/ecg-gateway/internal/store"
)

// Error details returned to clients.
const (
	detailBadCredentials = "Incorrect username or password"
	detailCreateECG      = "Error creating ECG"
	detailCreateUser     = "Error creating user"
	detailInternal       = "Internal server error"
)

// MessageResponse is the body of GET /.
type MessageResponse struct {
	Message string `json:"message"`
}

// DataResponse wraps a payload with a human readable message.
type DataResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// TokenResponse is the JSON response for POST /auth/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// CreateUserRequest is the JSON request body for POST /auth/users/create.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateUserResponse is the JSON response for POST /auth/users/create.
type CreateUserResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// UserResponse is the public view of a principal. The password hash never leaves the server.
type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// LeadRequest is one element of the POST /ecg/create body.
type LeadRequest struct {
	Identifier      string `json:"identifier"`
	Signal          []int  `json:"signal"`
	NumberOfSamples *int   `json:"number_of_samples,omitempty"`
}

// LeadResponse is the JSON form of a stored lead.
type LeadResponse struct {
	ID              string `json:"id"`
	ECGID           string `json:"ecg_id"`
	Identifier      string `json:"identifier"`
	NumberOfSamples int    `json:"number_of_samples"`
	Signal          []int  `json:"signal"`
}

// RecordingResponse is the JSON form of a stored recording.
type RecordingResponse struct {
	ID     string         `json:"id"`
	UserID string         `json:"user_id"`
	Date   string         `json:"date"`
	Leads  []LeadResponse `json:"leads"`
}

// AuditEntryResponse is the JSON form of an audit log entry.
type AuditEntryResponse struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Timestamp  string         `json:"timestamp"`
	Detail     map[string]any `json:"detail,omitempty"`
}

func toUserResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toRecordingResponse(rec *store.Recording) RecordingResponse {
	leads := make([]LeadResponse, len(rec.Leads))
	for i, l := range rec.Leads {
		n := len(l.Signal)
		if l.NumberOfSamples != nil {
			n = *l.NumberOfSamples
		}
		signal := l.Signal
		if signal == nil {
			signal = []int{}
		}
		leads[i] = LeadResponse{
			ID:              l.ID,
			ECGID:           rec.ID,
			Identifier:      l.Identifier,
			NumberOfSamples: n,
			Signal:          signal,
		}
	}
	return RecordingResponse{
		ID:     rec.ID,
		UserID: rec.OwnerID,
		Date:   rec.Date.UTC().Format(time.RFC3339Nano),
		Leads:  leads,
	}
}

// handleRoot handles GET /.
func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, MessageResponse{Message: "Hello, World!"})
}

// handleDocs serves the rendered API reference.
func (g *Gateway) handleDocs(w http.ResponseWriter, r *http.Request) {
	page, err := assets.RenderAPIReference()
	if err != nil {
		g.logger.Error("failed to render api reference", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, detailInternal)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// handleToken handles POST /auth/token. Credentials arrive as form fields.
func (g *Gateway) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		g.writeDecodeError(w, err, "invalid form body")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		g.sendJSONError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := g.gate.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			auth.WriteUnauthorized(w, detailBadCredentials)
			return
		}
		g.logger.Error("failed to authenticate", "username", username, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, detailInternal)
		return
	}

	g.writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// handleMe handles GET /auth/users/me.
func (g *Gateway) handleMe(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, toUserResponse(auth.MustFromContext(r.Context())))
}

// handleCreateUser handles POST /auth/users/create.
func (g *Gateway) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.writeDecodeError(w, err, "invalid JSON body")
		return
	}

	user, err := g.users.CreateUser(r.Context(), auth.MustFromContext(r.Context()), req.Username, req.Password)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, CreateUserResponse{
		Message: "User created successfully",
		UserID:  user.ID,
	})
}

// handleAuditLog handles GET /auth/audit.
// Supports optional ?limit=N, ?action=<action> and ?actor_id=<id> filters.
func (g *Gateway) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter store.AuditFilter
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			g.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}
	if raw := q.Get("action"); raw != "" {
		action, ok := store.ParseAuditAction(raw)
		if !ok {
			g.sendJSONError(w, http.StatusBadRequest, "unknown audit action: "+raw)
			return
		}
		filter.Action = &action
	}
	if actor := q.Get("actor_id"); actor != "" {
		filter.ActorID = &actor
	}

	entries, err := g.users.ListAuditLog(r.Context(), filter)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}

	data := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		data[i] = AuditEntryResponse{
			ID:         e.ID,
			ActorID:    e.ActorID,
			Action:     string(e.Action),
			TargetType: e.TargetType,
			TargetID:   e.TargetID,
			Timestamp:  e.Timestamp.UTC().Format(time.RFC3339Nano),
			Detail:     e.Detail,
		}
	}
	g.writeJSON(w, http.StatusOK, DataResponse{Message: "Audit log", Data: data})
}

// scope returns the recording repository bound to the caller.
func (g *Gateway) scope(r *http.Request) *recordings.Scope {
	return g.recordings.For(auth.FromContext(r.Context()))
}

// handleListRecordings handles GET /ecg/get_all.
func (g *Gateway) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	recs, err := g.scope(r).List(r.Context())
	if err != nil {
		g.writeServiceError(w, err)
		return
	}

	data := make([]RecordingResponse, len(recs))
	for i, rec := range recs {
		data[i] = toRecordingResponse(rec)
	}
	g.writeJSON(w, http.StatusOK, DataResponse{Message: "All ecgs", Data: data})
}

// handleGetRecording handles GET /ecg/get/{id}.
func (g *Gateway) handleGetRecording(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := g.scope(r).Get(r.Context(), id)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, DataResponse{
		Message: "ECG with ID: " + id,
		Data:    toRecordingResponse(rec),
	})
}

// handleCreateRecording handles POST /ecg/create. The body is a JSON array of leads.
func (g *Gateway) handleCreateRecording(w http.ResponseWriter, r *http.Request) {
	var req []LeadRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		g.writeDecodeError(w, err, "body must be a JSON array of leads")
		return
	}

	leads := make([]store.Lead, len(req))
	for i, l := range req {
		leads[i] = store.Lead{
			Identifier:      l.Identifier,
			Signal:          l.Signal,
			NumberOfSamples: l.NumberOfSamples,
		}
	}

	rec, err := g.scope(r).Create(r.Context(), leads)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, DataResponse{Message: "Created ecg", Data: toRecordingResponse(rec)})
}

// handleGetInsight handles GET /ecg/get_insight/{id}.
func (g *Gateway) handleGetInsight(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ins, err := g.scope(r).Insights(r.Context(), id)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, DataResponse{
		Message: "Insight for ecg_id: " + id,
		Data:    ins,
	})
}

// handleDeleteRecording handles DELETE /ecg/delete/{id}.
func (g *Gateway) handleDeleteRecording(w http.ResponseWriter, r *http.Request) {
	if err := g.scope(r).Delete(r.Context(), r.PathValue("id")); err != nil {
		g.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps service errors onto status codes and details.
func (g *Gateway) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, recordings.ErrNoPrincipal):
		auth.WriteUnauthorized(w, auth.CredentialsError)
	case errors.Is(err, auth.ErrForbidden):
		detail := auth.ErrForbidden.Error()
		var roleErr *auth.RoleError
		if errors.As(err, &roleErr) {
			detail = roleErr.Error()
		}
		g.sendJSONError(w, http.StatusForbidden, detail)
	case errors.Is(err, recordings.ErrNotFound):
		g.sendJSONError(w, http.StatusNotFound, recordings.ErrNotFound.Error())
	case errors.Is(err, recordings.ErrValidation), errors.Is(err, admin.ErrValidation):
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, recordings.ErrCreateFailed):
		g.sendJSONError(w, http.StatusInternalServerError, detailCreateECG)
	case errors.Is(err, admin.ErrCreateFailed):
		g.sendJSONError(w, http.StatusBadRequest, detailCreateUser)
	default:
		g.logger.Error("request failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, detailInternal)
	}
}

// errTrailingData is returned when a body holds more than one JSON value.
var errTrailingData = errors.New("unexpected data after JSON value")

// decodeJSON decodes exactly one JSON value from body into v.
func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err != nil {
			return err
		}
		return errTrailingData
	}
	return nil
}

// writeDecodeError reports a body that could not be parsed.
func (g *Gateway) writeDecodeError(w http.ResponseWriter, err error, detail string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		g.sendJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	g.sendJSONError(w, http.StatusBadRequest, detail)
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Debug("failed to write response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, detail string) {
	g.writeJSON(w, status, map[string]string{"detail": detail})
}
