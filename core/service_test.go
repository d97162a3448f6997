package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// memUserRepo is an in-memory UserRepository for tests.
type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*UserRecord // keyed by lowercase email
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*UserRecord)}
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[strings.ToLower(email)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepo) Create(ctx context.Context, username, email, passwordHash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := r.users[key]; ok {
		return 0, errors.New("duplicate key value violates unique constraint")
	}
	r.nextID++
	r.users[key] = &UserRecord{ID: r.nextID, Username: username, Email: email, PasswordHash: passwordHash}
	return r.nextID, nil
}

// failingUserRepo simulates a broken database connection.
type failingUserRepo struct {
	err error
}

func (r *failingUserRepo) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return nil, r.err
}

func (r *failingUserRepo) Create(ctx context.Context, username, email, passwordHash string) (int64, error) {
	return 0, r.err
}

func newTestAuthService() (*RepositoryAuthService, *memUserRepo) {
	repo := newMemUserRepo()
	// MinCost keeps hashing fast in tests.
	return NewRepositoryAuthService(repo, bcrypt.MinCost), repo
}

func TestRegisterOnceThenConflict(t *testing.T) {
	svc, _ := newTestAuthService()

	u, err := svc.Register("ana", "a@x.com", "pw123456")
	if err != nil {
		t.Fatalf("first register error: %v", err)
	}
	if u.ID == 0 || u.Username != "ana" || u.Email != "a@x.com" {
		t.Fatalf("unexpected user: %+v", u)
	}

	// Same email always conflicts, regardless of other fields.
	if _, err := svc.Register("other", "a@x.com", "different"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	svc, _ := newTestAuthService()

	cases := [][3]string{
		{"", "a@x.com", "pw"},
		{"ana", "", "pw"},
		{"ana", "a@x.com", ""},
		{"  ", "a@x.com", "pw"},
	}
	for _, c := range cases {
		if _, err := svc.Register(c[0], c[1], c[2]); !errors.Is(err, ErrMissingFields) {
			t.Fatalf("expected ErrMissingFields for %v, got %v", c, err)
		}
	}
}

func TestAuthenticateMergesUnknownAndWrongPassword(t *testing.T) {
	svc, _ := newTestAuthService()
	if _, err := svc.Register("ana", "a@x.com", "pw123456"); err != nil {
		t.Fatalf("register error: %v", err)
	}

	u, err := svc.Authenticate("a@x.com", "pw123456")
	if err != nil {
		t.Fatalf("authenticate error: %v", err)
	}
	if u.Username != "ana" {
		t.Fatalf("unexpected user: %+v", u)
	}

	_, errWrong := svc.Authenticate("a@x.com", "nope")
	_, errUnknown := svc.Authenticate("nobody@x.com", "whatever")
	if !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", errWrong)
	}
	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", errUnknown)
	}
	// The two failures must be the identical signal.
	if !errors.Is(errWrong, errUnknown) {
		t.Fatalf("expected identical errors, got %v vs %v", errWrong, errUnknown)
	}
}

func TestAuthenticateSurfacesStorageFailure(t *testing.T) {
	repoErr := errors.New("connection refused")
	svc := NewRepositoryAuthService(&failingUserRepo{err: repoErr}, bcrypt.MinCost)

	// A broken store must never read as a credential problem: 401 would
	// mislead the user and feed the login throttle during an outage.
	_, err := svc.Authenticate("a@x.com", "pw123456")
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("storage failure must not surface as ErrInvalidCredentials")
	}
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected the repository error, got %v", err)
	}
}

func TestRegisterSurfacesStorageFailure(t *testing.T) {
	repoErr := errors.New("connection refused")
	svc := NewRepositoryAuthService(&failingUserRepo{err: repoErr}, bcrypt.MinCost)

	_, err := svc.Register("ana", "a@x.com", "pw123456")
	if errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("storage failure must not surface as a domain error, got %v", err)
	}
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected the repository error, got %v", err)
	}
}

func TestRegisterNeverReturnsHash(t *testing.T) {
	svc, repo := newTestAuthService()
	if _, err := svc.Register("ana", "a@x.com", "pw123456"); err != nil {
		t.Fatalf("register error: %v", err)
	}

	stored, err := repo.FindByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("find error: %v", err)
	}
	if stored.PasswordHash == "pw123456" {
		t.Fatal("password stored in plaintext")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw123456")) != nil {
		t.Fatal("stored hash does not verify the password")
	}
}
