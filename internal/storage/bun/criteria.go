package bunrepo

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
)

func byID(id uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	}
}

func live() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("deleted_at IS NULL")
	}
}

func byEmail(email string) repository.SelectCriteria {
	email = strings.ToLower(strings.TrimSpace(email))
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("lower(email) = ?", email)
	}
}

func reportsTo(managerID string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("manager_id = ?", managerID)
	}
}

func ownedBy(userID string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID)
	}
}

// matching narrows requests by owner and status. An empty UserIDs slice
// matches everyone; callers short-circuit the non-nil empty case.
func matching(filter store.RequestFilter) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if len(filter.UserIDs) > 0 {
			q = q.Where("user_id IN (?)", bun.In(filter.UserIDs))
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}
}

func unread() repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident("read"), false)
	}
}

// window applies paging and the created_at range. Rows come back oldest
// first; services reorder for display.
func window(opts store.ListOptions) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if !opts.IncludeSoftDeleted {
			q = live()(q)
		}
		if !opts.Since.IsZero() {
			q = q.Where("created_at >= ?", opts.Since)
		}
		if !opts.Until.IsZero() {
			q = q.Where("created_at <= ?", opts.Until)
		}
		if opts.Limit > 0 {
			q = q.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			q = q.Offset(opts.Offset)
		}
		return q.Order("created_at ASC")
	}
}
