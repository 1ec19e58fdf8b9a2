package store

import (
	"context"
	"fmt"

	"github.com/mkovacevic/shopfront/pkg"

	log "github.com/sirupsen/logrus"
)

type SeedParams struct {
	// AdminPassword is required, there is no default on purpose
	AdminPassword string
	BcryptCost    int
}

type seedUser struct {
	id       int
	username string
	email    string
	password string
	profile  string
}

// Seed fills the store with the demo catalog and users. Called exactly
// once at startup. A hashing failure aborts the seed: a user is never
// created with a weak or empty hash.
func (s *Store) Seed(ctx context.Context, params SeedParams) error {
	if params.AdminPassword == "" {
		return fmt.Errorf("admin password not set")
	}

	s.mutex.Lock()
	s.categories[1] = &Category{ID: 1, Name: "Electronics"}
	s.categories[2] = &Category{ID: 2, Name: "Books"}

	s.products[1] = &Product{
		ID: 1, Name: "Gaming Laptop", CategoryID: 1,
		Price: 1200, Description: "High performance",
	}
	s.products[2] = &Product{
		ID: 2, Name: "Clean Code", CategoryID: 2,
		Price: 45, Description: "A handbook of agile software craftsmanship",
	}
	s.mutex.Unlock()

	seedUsers := []seedUser{
		{
			id: 1, username: "admin", email: "admin@test.com",
			password: params.AdminPassword,
			profile:  "I am the system administrator.",
		},
		{
			id: 2, username: "john_doe", email: "john@example.com",
			password: "BlueSky$99!",
			profile:  "Just a regular shopper looking for deals.",
		},
		{
			id: 3, username: "alice_wonder", email: "alice@example.com",
			password: "R@bbitH0le#1",
			profile:  "I love reading books about programming.",
		},
		{
			id: 4, username: "bob_builder", email: "bob@example.com",
			password: "FixIt!Fast2025",
			profile:  "Here to fix things and buy electronics.",
		},
	}

	for _, su := range seedUsers {
		if err := ctx.Err(); err != nil {
			return err
		}

		passwordHash, err := pkg.HashPassword(su.password, params.BcryptCost)
		if err != nil {
			return fmt.Errorf("hash password for user %s: %w", su.username, err)
		}

		if err := s.addUser(&User{
			ID:           su.id,
			Username:     su.username,
			Email:        su.email,
			PasswordHash: passwordHash,
			Profile:      su.profile,
		}); err != nil {
			return fmt.Errorf("add user %s: %w", su.username, err)
		}
	}

	log.Debugf("store seeded: %d users, %d products", len(s.usersByID), len(s.products))
	return nil
}
