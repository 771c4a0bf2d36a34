// Package api holds the JSON payloads exchanged between the REST layer and
// the API client.
package api

import (
	"time"

	"github.com/goliatone/go-timeoff/pkg/domain"
)

// Route paths shared by server and client.
const (
	PathToken         = "/api/auth/token"
	PathRequests      = "/api/requests"
	PathNotifications = "/api/notifications"
	PathUnreadCount   = "/api/notifications/unread-count"
	PathMarkAllRead   = "/api/notifications/read-all"
	PathHealth        = "/health"
	PathMetrics       = "/metrics"
)

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"

	QueryStatus  = "status"
	BearerPrefix = "Bearer "
)

// RequestDecisionPath returns the approve/reject route for a request.
func RequestDecisionPath(id, decision string) string {
	return PathRequests + "/" + id + "/" + decision
}

// NotificationReadPath returns the mark-as-read route for a notification.
func NotificationReadPath(id string) string {
	return PathNotifications + "/" + id + "/read"
}

// ListResponse wraps collection payloads.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// CountResponse is returned by the unread-count endpoint.
type CountResponse struct {
	Count int `json:"count"`
}

// UpdatedResponse reports how many records a bulk mutation touched.
type UpdatedResponse struct {
	Updated int `json:"updated"`
}

// TokenRequest asks for a session token for the given user.
type TokenRequest struct {
	Email string `json:"email"`
}

// TokenResponse carries a signed session token.
type TokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"user"`
}

// SubmitRequest is the body of POST /api/requests.
type SubmitRequest struct {
	Kind      domain.RequestKind `json:"kind"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`
	Hours     float64            `json:"hours,omitempty"`
	Reason    string             `json:"reason,omitempty"`
}

// ReviewRequest is the body of the approve/reject routes.
type ReviewRequest struct {
	Note string `json:"note,omitempty"`
}

// ErrorResponse is written for every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
