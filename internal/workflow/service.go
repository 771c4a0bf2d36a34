// Package workflow implements request submission, role filtered listing and
// manager review on top of the repositories.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-timeoff/internal/inbox"
	"github.com/goliatone/go-timeoff/pkg/activity"
	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
	"github.com/google/uuid"
)

var (
	ErrForbidden    = errors.New("workflow: forbidden")
	ErrNotPending   = errors.New("workflow: request is not pending")
	ErrInvalidInput = errors.New("workflow: invalid input")

	errRepositoryRequired = errors.New("workflow: users and requests repositories are required")
)

// Actor is the authenticated caller.
type Actor struct {
	ID        string
	Role      domain.Role
	ManagerID string
}

// Decision is a review outcome.
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

// Status maps the decision to the resulting request status.
func (d Decision) Status() (domain.RequestStatus, bool) {
	switch d {
	case Approve:
		return domain.StatusApproved, true
	case Reject:
		return domain.StatusRejected, true
	}
	return "", false
}

// SubmitInput carries a new request.
type SubmitInput struct {
	Kind      domain.RequestKind
	StartDate time.Time
	EndDate   time.Time
	Hours     float64
	Reason    string
}

// Notifier records notifications for users.
type Notifier interface {
	Create(ctx context.Context, input inbox.CreateInput) (*domain.Notification, error)
}

var _ Notifier = (*inbox.Service)(nil)

type Dependencies struct {
	Users       store.UserRepository
	Requests    store.RequestRepository
	Notifier    Notifier
	Transaction store.TransactionManager
	Logger      logger.Logger
	Activity    activity.Hooks
	Clock       func() time.Time
}

// Service owns the request lifecycle.
type Service struct {
	users    store.UserRepository
	requests store.RequestRepository
	notifier Notifier
	tx       store.TransactionManager
	logger   logger.Logger
	activity activity.Hooks
	now      func() time.Time
}

func NewService(deps Dependencies) (*Service, error) {
	if deps.Users == nil || deps.Requests == nil {
		return nil, errRepositoryRequired
	}
	if deps.Transaction == nil {
		deps.Transaction = &store.NopTransactionManager{}
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Service{
		users:    deps.Users,
		requests: deps.Requests,
		notifier: deps.Notifier,
		tx:       deps.Transaction,
		logger:   deps.Logger,
		activity: deps.Activity,
		now:      deps.Clock,
	}, nil
}

// Submit stores a pending request for the actor and notifies their manager.
func (s *Service) Submit(ctx context.Context, actor Actor, input SubmitInput) (*domain.Request, error) {
	if err := validateSubmit(input); err != nil {
		return nil, err
	}
	user, err := s.lookupUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	req := &domain.Request{
		UserID:    user.ID.String(),
		ManagerID: user.ManagerID,
		Kind:      input.Kind,
		Status:    domain.StatusPending,
		StartDate: input.StartDate.UTC(),
		EndDate:   input.EndDate.UTC(),
		Hours:     input.Hours,
		Reason:    strings.TrimSpace(input.Reason),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	if req.ManagerID != "" {
		s.notify(ctx, inbox.CreateInput{
			UserID:    req.ManagerID,
			RequestID: req.ID.String(),
			Title:     "New request to review",
			Message:   fmt.Sprintf("%s submitted a %s request", displayName(user), kindLabel(req.Kind)),
		})
	}
	s.activity.Notify(ctx, activity.Event{
		Verb:       activity.VerbRequestSubmitted,
		ActorID:    actor.ID,
		UserID:     req.UserID,
		ObjectType: "request",
		ObjectID:   req.ID.String(),
		Metadata:   map[string]any{"kind": string(req.Kind)},
	})
	return req, nil
}

// List returns the requests visible to actor, newest first. Employees see
// their own, managers their own plus their direct reports', admins all.
func (s *Service) List(ctx context.Context, actor Actor, status domain.RequestStatus) ([]domain.Request, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	filter := store.RequestFilter{Status: status}

	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleManager:
		reports, err := s.users.ListByManager(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		filter.UserIDs = append(make([]string, 0, len(reports)+1), actor.ID)
		for _, report := range reports {
			filter.UserIDs = append(filter.UserIDs, report.ID.String())
		}
	case domain.RoleEmployee:
		filter.UserIDs = []string{actor.ID}
	default:
		return nil, ErrForbidden
	}

	result, err := s.requests.ListFiltered(ctx, filter, store.ListOptions{})
	if err != nil {
		return nil, err
	}
	items := result.Items
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// Review approves or rejects a pending request and notifies the requester.
func (s *Service) Review(ctx context.Context, actor Actor, id uuid.UUID, decision Decision, note string) (*domain.Request, error) {
	status, ok := decision.Status()
	if !ok {
		return nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidInput, decision)
	}
	if !actor.Role.CanReview() {
		return nil, ErrForbidden
	}

	var reviewed *domain.Request
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorizeReview(ctx, actor, req); err != nil {
			return err
		}
		if req.Status != domain.StatusPending {
			return ErrNotPending
		}
		req.Status = status
		req.ReviewerID = actor.ID
		req.ReviewNote = strings.TrimSpace(note)
		req.ReviewedAt = s.now().UTC()
		if err := s.requests.Update(ctx, req); err != nil {
			return err
		}
		reviewed = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, inbox.CreateInput{
		UserID:    reviewed.UserID,
		RequestID: reviewed.ID.String(),
		Title:     fmt.Sprintf("Request %s", reviewed.Status),
		Message:   reviewMessage(reviewed),
	})
	verb := activity.VerbRequestApproved
	if status == domain.StatusRejected {
		verb = activity.VerbRequestRejected
	}
	s.activity.Notify(ctx, activity.Event{
		Verb:       verb,
		ActorID:    actor.ID,
		UserID:     reviewed.UserID,
		ObjectType: "request",
		ObjectID:   reviewed.ID.String(),
		Metadata:   map[string]any{"note": reviewed.ReviewNote},
	})
	return reviewed, nil
}

func (s *Service) authorizeReview(ctx context.Context, actor Actor, req *domain.Request) error {
	if req.UserID == actor.ID {
		return ErrForbidden
	}
	if actor.Role == domain.RoleAdmin {
		return nil
	}
	requester, err := s.lookupUser(ctx, req.UserID)
	if err != nil {
		return err
	}
	if requester.ManagerID != actor.ID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) lookupUser(ctx context.Context, id string) (*domain.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: user id %q", ErrInvalidInput, id)
	}
	return s.users.GetByID(ctx, uid)
}

// notify records a notification. Failures are logged; the request change
// already happened and is not undone.
func (s *Service) notify(ctx context.Context, input inbox.CreateInput) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Create(ctx, input); err != nil {
		s.logger.Warn("create notification failed",
			logger.Field{Key: "user_id", Value: input.UserID},
			logger.Field{Key: "request_id", Value: input.RequestID},
			logger.Err(err),
		)
	}
}

func validateSubmit(input SubmitInput) error {
	if !input.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, input.Kind)
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", ErrInvalidInput)
	}
	if input.EndDate.Before(input.StartDate) {
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalidInput)
	}
	if input.Hours < 0 {
		return fmt.Errorf("%w: hours must be >= 0", ErrInvalidInput)
	}
	return nil
}

func displayName(u *domain.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func kindLabel(kind domain.RequestKind) string {
	if kind == domain.KindTimeEdit {
		return "time edit"
	}
	return "time off"
}

func reviewMessage(req *domain.Request) string {
	msg := fmt.Sprintf("Your %s request for %s was %s",
		kindLabel(req.Kind), req.StartDate.Format("2006-01-02"), req.Status)
	if req.ReviewNote != "" {
		msg += ": " + req.ReviewNote
	}
	return msg
}
