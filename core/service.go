package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// RepositoryAuthService implements AuthService over a UserRepository with
// bcrypt hashing.
type RepositoryAuthService struct {
	users UserRepository
	cost  int
}

func NewRepositoryAuthService(users UserRepository, bcryptCost int) *RepositoryAuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &RepositoryAuthService{users: users, cost: bcryptCost}
}

// Register creates a new user after verifying the email is unused.
// The email check and the insert are two separate queries; a race between
// them surfaces as a storage error from the unique index.
func (s *RepositoryAuthService) Register(username, email, password string) (User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return User{}, ErrMissingFields
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, err
	}

	id, err := s.users.Create(ctx, username, email, string(hash))
	if err != nil {
		return User{}, err
	}
	return User{ID: id, Username: username, Email: email}, nil
}

// Authenticate verifies email/password. Unknown email and wrong password
// return the identical ErrInvalidCredentials.
func (s *RepositoryAuthService) Authenticate(email, password string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return User{}, ErrMissingFields
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		// Only an absent row is a credential failure; anything else is a
		// storage fault and must surface as one.
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if u == nil {
		return User{}, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return User{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}, nil
}
