package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-timeoff/internal/inbox"
	"github.com/goliatone/go-timeoff/internal/storage/memory"
	"github.com/goliatone/go-timeoff/pkg/activity"
	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
	"github.com/google/uuid"
)

type fixture struct {
	svc      *Service
	inbox    *inbox.Service
	requests *memory.RequestRepository
	hook     *captureHook

	admin    domain.User
	manager  domain.User
	other    domain.User
	employee domain.User
	outsider domain.User
}

type captureHook struct {
	verbs []string
}

func (c *captureHook) Notify(_ context.Context, evt activity.Event) {
	c.verbs = append(c.verbs, evt.Verb)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	users := memory.NewUserRepository()
	requests := memory.NewRequestRepository()
	notifications := memory.NewNotificationRepository()

	mk := func(email string, role domain.Role, managerID string) domain.User {
		u := domain.User{Email: email, Name: email, Role: role, ManagerID: managerID}
		if err := users.Create(ctx, &u); err != nil {
			t.Fatalf("create user %s: %v", email, err)
		}
		return u
	}

	f := &fixture{requests: requests, hook: &captureHook{}}
	f.admin = mk("admin@example.com", domain.RoleAdmin, "")
	f.manager = mk("manager@example.com", domain.RoleManager, f.admin.ID.String())
	f.other = mk("other-manager@example.com", domain.RoleManager, f.admin.ID.String())
	f.employee = mk("employee@example.com", domain.RoleEmployee, f.manager.ID.String())
	f.outsider = mk("outsider@example.com", domain.RoleEmployee, f.other.ID.String())

	inboxSvc, err := inbox.NewService(inbox.Dependencies{Repository: notifications})
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	f.inbox = inboxSvc

	svc, err := NewService(Dependencies{
		Users:       users,
		Requests:    requests,
		Notifier:    inboxSvc,
		Transaction: &store.SerialTransactionManager{},
		Activity:    activity.Hooks{f.hook},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func actorOf(u domain.User) Actor {
	return Actor{ID: u.ID.String(), Role: u.Role, ManagerID: u.ManagerID}
}

func validInput() SubmitInput {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return SubmitInput{Kind: domain.KindTimeOff, StartDate: start, EndDate: start.AddDate(0, 0, 2), Reason: " trip "}
}

func (f *fixture) submit(t *testing.T, u domain.User) *domain.Request {
	t.Helper()
	req, err := f.svc.Submit(context.Background(), actorOf(u), validInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return req
}

func TestSubmitCreatesPendingAndNotifiesManager(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t, f.employee)

	if req.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}
	if req.ManagerID != f.manager.ID.String() {
		t.Fatalf("expected manager id to be copied from the user")
	}
	if req.Reason != "trip" {
		t.Fatalf("expected trimmed reason, got %q", req.Reason)
	}

	count, err := f.inbox.UnreadCount(context.Background(), f.manager.ID.String())
	if err != nil || count != 1 {
		t.Fatalf("expected manager notification, got %d, %v", count, err)
	}
	if len(f.hook.verbs) != 1 || f.hook.verbs[0] != activity.VerbRequestSubmitted {
		t.Fatalf("expected submitted activity, got %v", f.hook.verbs)
	}
}

func TestSubmitValidates(t *testing.T) {
	f := newFixture(t)
	cases := map[string]func(*SubmitInput){
		"kind":     func(in *SubmitInput) { in.Kind = "holiday" },
		"dates":    func(in *SubmitInput) { in.StartDate = time.Time{} },
		"reversed": func(in *SubmitInput) { in.EndDate = in.StartDate.AddDate(0, 0, -1) },
		"hours":    func(in *SubmitInput) { in.Hours = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			if _, err := f.svc.Submit(context.Background(), actorOf(f.employee), in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestListFiltersByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t, f.employee)
	f.submit(t, f.manager)
	f.submit(t, f.outsider)

	employee, err := f.svc.List(ctx, actorOf(f.employee), "")
	if err != nil {
		t.Fatalf("list employee: %v", err)
	}
	if len(employee) != 1 || employee[0].UserID != f.employee.ID.String() {
		t.Fatalf("employee should only see own requests, got %d", len(employee))
	}

	manager, err := f.svc.List(ctx, actorOf(f.manager), "")
	if err != nil {
		t.Fatalf("list manager: %v", err)
	}
	if len(manager) != 2 {
		t.Fatalf("manager should see own and reports' requests, got %d", len(manager))
	}
	for _, req := range manager {
		if req.UserID == f.outsider.ID.String() {
			t.Fatalf("manager must not see other teams' requests")
		}
	}

	admin, err := f.svc.List(ctx, actorOf(f.admin), "")
	if err != nil {
		t.Fatalf("list admin: %v", err)
	}
	if len(admin) != 3 {
		t.Fatalf("admin should see everything, got %d", len(admin))
	}
	for i := 1; i < len(admin); i++ {
		if admin[i].CreatedAt.After(admin[i-1].CreatedAt) {
			t.Fatalf("expected newest first")
		}
	}
}

func TestListByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t, f.employee)
	f.submit(t, f.employee)
	if _, err := f.svc.Review(ctx, actorOf(f.manager), req.ID, Approve, ""); err != nil {
		t.Fatalf("review: %v", err)
	}

	approved, err := f.svc.List(ctx, actorOf(f.employee), domain.StatusApproved)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(approved) != 1 || approved[0].ID != req.ID {
		t.Fatalf("expected only the approved request, got %+v", approved)
	}
	if _, err := f.svc.List(ctx, actorOf(f.employee), "bogus"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown status, got %v", err)
	}
}

func TestReviewByManagerNotifiesRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t, f.employee)

	reviewed, err := f.svc.Review(ctx, actorOf(f.manager), req.ID, Reject, "busy week")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != domain.StatusRejected || reviewed.ReviewerID != f.manager.ID.String() {
		t.Fatalf("unexpected review result: %+v", reviewed)
	}
	if reviewed.ReviewedAt.IsZero() {
		t.Fatalf("expected reviewed_at to be stamped")
	}

	stored, err := f.requests.GetByID(ctx, req.ID)
	if err != nil || stored.Status != domain.StatusRejected {
		t.Fatalf("expected stored request to be rejected, got %+v, %v", stored, err)
	}

	items, err := f.inbox.List(ctx, f.employee.ID.String(), true)
	if err != nil {
		t.Fatalf("inbox list: %v", err)
	}
	if len(items) != 1 || items[0].RequestID != req.ID.String() {
		t.Fatalf("expected requester notification, got %+v", items)
	}
	if last := f.hook.verbs[len(f.hook.verbs)-1]; last != activity.VerbRequestRejected {
		t.Fatalf("expected rejected activity, got %s", last)
	}
}

func TestReviewPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	employeeReq := f.submit(t, f.employee)
	managerReq := f.submit(t, f.manager)

	cases := []struct {
		name  string
		actor domain.User
		id    uuid.UUID
		want  error
	}{
		{"employee cannot review", f.outsider, employeeReq.ID, ErrForbidden},
		{"other team manager", f.other, employeeReq.ID, ErrForbidden},
		{"self review", f.manager, managerReq.ID, ErrForbidden},
		{"unknown request", f.manager, uuid.New(), store.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Review(ctx, actorOf(tc.actor), tc.id, Approve, ""); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := f.svc.Review(ctx, actorOf(f.admin), managerReq.ID, Approve, ""); err != nil {
		t.Fatalf("admin should review any request: %v", err)
	}
}

func TestReviewOnlyPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t, f.employee)

	if _, err := f.svc.Review(ctx, actorOf(f.manager), req.ID, Approve, ""); err != nil {
		t.Fatalf("first review: %v", err)
	}
	if _, err := f.svc.Review(ctx, actorOf(f.admin), req.ID, Reject, ""); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if _, err := f.svc.Review(ctx, actorOf(f.manager), req.ID, "maybe", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown decision, got %v", err)
	}
}
