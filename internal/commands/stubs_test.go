package commands

import (
	"context"

	"github.com/goliatone/go-timeoff/internal/workflow"
	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/google/uuid"
)

type stubWorkflow struct{}

func (stubWorkflow) Submit(context.Context, workflow.Actor, workflow.SubmitInput) (*domain.Request, error) {
	return &domain.Request{}, nil
}

func (stubWorkflow) Review(context.Context, workflow.Actor, uuid.UUID, workflow.Decision, string) (*domain.Request, error) {
	return &domain.Request{}, nil
}

type stubInbox struct{}

func (stubInbox) MarkRead(context.Context, string, uuid.UUID) error { return nil }

func (stubInbox) MarkAllRead(context.Context, string) (int, error) { return 0, nil }
