package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-timeoff/internal/workflow"
	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
	"github.com/google/uuid"
)

// Catalog exposes go-command compatible handlers for host transports.
type Catalog struct {
	SubmitRequest            command.Commander[SubmitRequest]
	ReviewRequest            command.Commander[ReviewRequest]
	MarkNotificationRead     command.Commander[MarkNotificationRead]
	MarkAllNotificationsRead command.Commander[MarkAllNotificationsRead]
}

type workflowService interface {
	Submit(ctx context.Context, actor workflow.Actor, input workflow.SubmitInput) (*domain.Request, error)
	Review(ctx context.Context, actor workflow.Actor, id uuid.UUID, decision workflow.Decision, note string) (*domain.Request, error)
}

type inboxService interface {
	MarkRead(ctx context.Context, userID string, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// Dependencies wires services into the command catalog.
type Dependencies struct {
	Workflow workflowService
	Inbox    inboxService
	Logger   logger.Logger
}

// ErrInvalidID is returned when a message carries a malformed identifier.
var ErrInvalidID = errors.New("commands: invalid id")

// NewCatalog builds the command catalog using the supplied dependencies.
func NewCatalog(deps Dependencies) (*Catalog, error) {
	if deps.Workflow == nil {
		return nil, errors.New("commands: workflow service is required")
	}
	if deps.Inbox == nil {
		return nil, errors.New("commands: inbox service is required")
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}

	return &Catalog{
		SubmitRequest:            submitRequestCommand{svc: deps.Workflow, logger: deps.Logger},
		ReviewRequest:            reviewRequestCommand{svc: deps.Workflow, logger: deps.Logger},
		MarkNotificationRead:     markReadCommand{svc: deps.Inbox},
		MarkAllNotificationsRead: markAllReadCommand{svc: deps.Inbox},
	}, nil
}

// SubmitRequest creates a request on behalf of Actor. When Result is set it
// receives the stored request.
type SubmitRequest struct {
	Actor     workflow.Actor     `json:"-"`
	Kind      domain.RequestKind `json:"kind"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`
	Hours     float64            `json:"hours"`
	Reason    string             `json:"reason"`
	Result    *domain.Request    `json:"-"`
}

type submitRequestCommand struct {
	svc    workflowService
	logger logger.Logger
}

func (c submitRequestCommand) Execute(ctx context.Context, msg SubmitRequest) error {
	req, err := c.svc.Submit(ctx, msg.Actor, workflow.SubmitInput{
		Kind:      msg.Kind,
		StartDate: msg.StartDate,
		EndDate:   msg.EndDate,
		Hours:     msg.Hours,
		Reason:    msg.Reason,
	})
	if err != nil {
		return err
	}
	c.logger.Info("request submitted",
		logger.Field{Key: "request_id", Value: req.ID.String()},
		logger.Field{Key: "user_id", Value: req.UserID},
	)
	if msg.Result != nil {
		*msg.Result = *req
	}
	return nil
}

// ReviewRequest approves or rejects a request.
type ReviewRequest struct {
	Actor    workflow.Actor    `json:"-"`
	ID       string            `json:"id"`
	Decision workflow.Decision `json:"decision"`
	Note     string            `json:"note"`
	Result   *domain.Request   `json:"-"`
}

type reviewRequestCommand struct {
	svc    workflowService
	logger logger.Logger
}

func (c reviewRequestCommand) Execute(ctx context.Context, msg ReviewRequest) error {
	id, err := parseID(msg.ID)
	if err != nil {
		return err
	}
	req, err := c.svc.Review(ctx, msg.Actor, id, msg.Decision, msg.Note)
	if err != nil {
		return err
	}
	c.logger.Info("request reviewed",
		logger.Field{Key: "request_id", Value: req.ID.String()},
		logger.Field{Key: "status", Value: string(req.Status)},
		logger.Field{Key: "reviewer_id", Value: req.ReviewerID},
	)
	if msg.Result != nil {
		*msg.Result = *req
	}
	return nil
}

// MarkNotificationRead marks one of the user's notifications read.
type MarkNotificationRead struct {
	UserID string `json:"user_id"`
	ID     string `json:"id"`
}

type markReadCommand struct {
	svc inboxService
}

func (c markReadCommand) Execute(ctx context.Context, msg MarkNotificationRead) error {
	id, err := parseID(msg.ID)
	if err != nil {
		return err
	}
	return c.svc.MarkRead(ctx, msg.UserID, id)
}

// MarkAllNotificationsRead marks every notification of the user read. When
// Updated is set it receives the number of changed rows.
type MarkAllNotificationsRead struct {
	UserID  string `json:"user_id"`
	Updated *int   `json:"-"`
}

type markAllReadCommand struct {
	svc inboxService
}

func (c markAllReadCommand) Execute(ctx context.Context, msg MarkAllNotificationsRead) error {
	n, err := c.svc.MarkAllRead(ctx, msg.UserID)
	if err != nil {
		return err
	}
	if msg.Updated != nil {
		*msg.Updated = n
	}
	return nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}
