package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
	"github.com/goliatone/go-timeoff/pkg/interfaces/store"
	"github.com/goliatone/go-timeoff/pkg/storage"
)

type seedUser struct {
	email   string
	name    string
	role    domain.Role
	manager string
}

// demoOrg is listed managers first so ManagerID can be resolved by email.
var demoOrg = []seedUser{
	{email: "admin@example.com", name: "Ada Admin", role: domain.RoleAdmin},
	{email: "manager@example.com", name: "Max Manager", role: domain.RoleManager, manager: "admin@example.com"},
	{email: "erin@example.com", name: "Erin Employee", role: domain.RoleEmployee, manager: "manager@example.com"},
	{email: "eli@example.com", name: "Eli Employee", role: domain.RoleEmployee, manager: "manager@example.com"},
}

func seedAction(ctx context.Context, cmd *cli.Command) error {
	rt, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	db, err := rt.OpenDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	created, err := seedUsers(ctx, storage.NewBunProviders(db).Users, demoOrg)
	if err != nil {
		return err
	}
	rt.Logger.Info("seed complete", logger.Field{Key: "created", Value: created})
	return nil
}

// seedUsers creates missing users and returns how many were added. Existing
// emails are left untouched.
func seedUsers(ctx context.Context, users store.UserRepository, org []seedUser) (int, error) {
	ids := make(map[string]string, len(org))
	created := 0
	for _, su := range org {
		if existing, err := users.GetByEmail(ctx, su.email); err == nil {
			ids[su.email] = existing.ID.String()
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return created, err
		}

		user := domain.User{Email: su.email, Name: su.name, Role: su.role}
		if su.manager != "" {
			managerID, ok := ids[su.manager]
			if !ok {
				return created, fmt.Errorf("seed: manager %s of %s is not defined before it", su.manager, su.email)
			}
			user.ManagerID = managerID
		}
		if err := users.Create(ctx, &user); err != nil {
			return created, fmt.Errorf("seed: create %s: %w", su.email, err)
		}
		ids[su.email] = user.ID.String()
		created++
	}
	return created, nil
}
