package service

import (
	"context"
	"log/slog"

	"bloghub.com/internal/config"
	"bloghub.com/internal/domain"
	"bloghub.com/internal/model"
)

// Seeder creates the default accounts on first start.
type Seeder struct {
	users domain.UserService
	cfg   config.SeedConfig
}

func NewSeeder(users domain.UserService, cfg config.SeedConfig) *Seeder {
	return &Seeder{users: users, cfg: cfg}
}

// Run creates "admin" and "demo" if they do not exist yet. Safe to call repeatedly.
func (s *Seeder) Run(ctx context.Context) error {
	defaults := []domain.UserInput{
		{
			Username:  "admin",
			Email:     "admin@bloghub.local",
			Password:  s.cfg.AdminPassword,
			FirstName: "Admin",
			LastName:  "User",
			Role:      model.RoleAdmin,
		},
		{
			Username:  "demo",
			Email:     "demo@bloghub.local",
			Password:  s.cfg.DemoPassword,
			FirstName: "Demo",
			LastName:  "User",
			Role:      model.RoleUser,
		},
	}

	for _, in := range defaults {
		exists, err := s.users.ExistsByUsername(ctx, in.Username)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.users.CreateUser(ctx, in); err != nil {
			return err
		}
		slog.Info("default user created", "component", "seed", "username", in.Username, "role", in.Role)
	}
	return nil
}
