package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkovacevic/shopfront/internal/store"
	"github.com/mkovacevic/shopfront/pkg"

	log "github.com/sirupsen/logrus"
)

type userStore interface {
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
	GetUserByID(ctx context.Context, id int) (*store.User, error)
}

// Service verifies credentials and owns the session lifecycle.
type Service struct {
	users    userStore
	sessions SessionStore

	// decoyPasswordHash gets compared against when the username lookup
	// misses, so that the unknown-user and wrong-password paths take the
	// same time and cannot be told apart by a client. Hashed at the same
	// cost as the stored user hashes, a cheaper decoy would stand out.
	decoyPasswordHash string
}

func NewService(users userStore, sessions SessionStore, bcryptCost int) *Service {
	decoyHash, err := pkg.HashPassword("decoy, never a real credential", bcryptCost)
	if err != nil {
		// only reachable with an out-of-range cost
		log.Errorf("auth service: hash decoy password: %s", err)
		decoyHash, _ = pkg.HashPassword("decoy, never a real credential", pkg.DefaultBcryptCost)
	}

	return &Service{
		users:             users,
		sessions:          sessions,
		decoyPasswordHash: decoyHash,
	}
}

// Login verifies the credentials and mints a session on success. Both a
// lookup miss and a hash mismatch come back as ErrInvalidCredentials;
// never tell the caller which one happened.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			pkg.CheckPasswordHash(password, s.decoyPasswordHash)
			log.Tracef("[username] failed login attempt for user: %s", username)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("user lookup: %w", err)
	}

	if !pkg.CheckPasswordHash(password, user.PasswordHash) {
		log.Tracef("[password] failed login attempt for user: %s", username)
		return "", ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, Principal{
		ID:       user.ID,
		Username: user.Username,
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	log.Tracef("new login for user %s", username)
	return token, nil
}

// Logout destroys the session; unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// Authorize is the access gate pre-check: it resolves the token to a
// principal or fails with ErrNoSession. The principal is revalidated
// against the user store by id on every use.
func (s *Service) Authorize(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	principal, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil, ErrNoSession
		}
		// session store trouble: deny, do not guess
		log.Errorf("authorize, session lookup: %s", err)
		return nil, ErrNoSession
	}

	if _, err := s.users.GetUserByID(ctx, principal.ID); err != nil {
		log.Errorf("authorize, principal %d no longer in store", principal.ID)
		return nil, ErrNoSession
	}

	return principal, nil
}
