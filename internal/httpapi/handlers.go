package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/goliatone/go-timeoff/internal/commands"
	"github.com/goliatone/go-timeoff/internal/inbox"
	"github.com/goliatone/go-timeoff/internal/workflow"
	"github.com/goliatone/go-timeoff/pkg/api"
	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
)

const maxBodyBytes = 1 << 20

// handleToken issues a session token for a known email. There is no
// password check; deployments put this behind their own identity proxy.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req api.TokenRequest
	if err := s.parseRequest(r, &req); err != nil {
		s.writeErrorResponse(w, "invalid request", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		s.writeErrorResponse(w, "email is required", http.StatusBadRequest)
		return
	}
	user, err := s.users.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeErrorResponse(w, "unknown user", http.StatusUnauthorized)
			return
		}
		s.writeError(w, err)
		return
	}
	token, exp, err := s.issuer.Issue(*user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusOK, api.TokenResponse{Token: token, ExpiresAt: exp, User: *user})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	status := domain.RequestStatus(r.URL.Query().Get(api.QueryStatus))
	items, err := s.workflow.List(r.Context(), actor, status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusOK, api.ListResponse[domain.Request]{Items: items, Total: len(items)})
}

func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	var body api.SubmitRequest
	if err := s.parseRequest(r, &body); err != nil {
		s.writeErrorResponse(w, "invalid request", http.StatusBadRequest)
		return
	}
	var created domain.Request
	err := s.commands.SubmitRequest.Execute(r.Context(), commands.SubmitRequest{
		Actor:     actor,
		Kind:      body.Kind,
		StartDate: body.StartDate,
		EndDate:   body.EndDate,
		Hours:     body.Hours,
		Reason:    body.Reason,
		Result:    &created,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusCreated, created)
}

func (s *Server) handleReviewRequest(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	vars := mux.Vars(r)
	var body api.ReviewRequest
	if r.ContentLength != 0 {
		if err := s.parseRequest(r, &body); err != nil {
			s.writeErrorResponse(w, "invalid request", http.StatusBadRequest)
			return
		}
	}
	var reviewed domain.Request
	err := s.commands.ReviewRequest.Execute(r.Context(), commands.ReviewRequest{
		Actor:    actor,
		ID:       vars["id"],
		Decision: workflow.Decision(vars["decision"]),
		Note:     body.Note,
		Result:   &reviewed,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusOK, reviewed)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"
	items, err := s.inbox.List(r.Context(), actor.ID, unreadOnly)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusOK, api.ListResponse[domain.Notification]{Items: items, Total: len(items)})
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	count, err := s.inbox.UnreadCount(r.Context(), actor.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusOK, api.CountResponse{Count: count})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	err := s.commands.MarkNotificationRead.Execute(r.Context(), commands.MarkNotificationRead{
		UserID: actor.ID,
		ID:     mux.Vars(r)["id"],
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	var updated int
	err := s.commands.MarkAllNotificationsRead.Execute(r.Context(), commands.MarkAllNotificationsRead{
		UserID:  actor.ID,
		Updated: &updated,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusOK, api.UpdatedResponse{Updated: updated})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrNotPending), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrInvalidInput),
		errors.Is(err, inbox.ErrInvalidInput),
		errors.Is(err, commands.ErrInvalidID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", logger.Err(err))
		msg = "internal error"
	}
	s.writeErrorResponse(w, msg, status)
}

// parseRequest parses a JSON request body.
func (s *Server) parseRequest(r *http.Request, v any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// writeResponse writes a JSON response.
func (s *Server) writeResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", logger.Err(err))
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, status int) {
	s.writeResponse(w, status, api.ErrorResponse{Error: message})
}
