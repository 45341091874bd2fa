package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/roombook/internal/persistence"
)

type stubAccountStore struct {
	accounts map[string]persistence.Account
}

func (s *stubAccountStore) GetAccountByEmail(_ context.Context, email string) (persistence.Account, error) {
	account, ok := s.accounts[email]
	if !ok {
		return persistence.Account{}, persistence.ErrNotFound
	}
	return account, nil
}

func (s *stubAccountStore) GetAccount(_ context.Context, employeeID int64) (persistence.Account, error) {
	for _, account := range s.accounts {
		if account.EmployeeID == employeeID {
			return account, nil
		}
	}
	return persistence.Account{}, persistence.ErrNotFound
}

type stubSessionStore struct {
	sessions map[string]persistence.Session
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]persistence.Session)}
}

func (s *stubSessionStore) CreateSession(_ context.Context, session persistence.Session) (persistence.Session, error) {
	if _, ok := s.sessions[session.Token]; ok {
		return persistence.Session{}, persistence.ErrDuplicate
	}
	s.sessions[session.Token] = session
	return session, nil
}

func (s *stubSessionStore) GetSession(_ context.Context, token string) (persistence.Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *stubSessionStore) RevokeSession(_ context.Context, token string, revokedAt time.Time) error {
	session, ok := s.sessions[token]
	if !ok {
		return persistence.ErrNotFound
	}
	session.RevokedAt = &revokedAt
	session.UpdatedAt = revokedAt
	s.sessions[token] = session
	return nil
}

func (s *stubSessionStore) DeleteExpiredSessions(_ context.Context, reference time.Time) error {
	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *stubSessionStore, time.Time) {
	t.Helper()

	hash, err := CreatePasswordHash("secret-1234")
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	accounts := &stubAccountStore{accounts: map[string]persistence.Account{
		"somchai@example.co.th": {
			EmployeeID:   1,
			Email:        "somchai@example.co.th",
			PasswordHash: hash,
			IsAdmin:      true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}}
	sessions := newStubSessionStore()

	counter := 0
	service := NewAuthService(accounts, sessions, testDirectory(), nil, func() string {
		counter++
		return fmt.Sprintf("tok-%d", counter)
	}, func() time.Time { return now }, 8*time.Hour, nil)

	return service, sessions, now
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	service, sessions, now := newAuthFixture(t)

	result, err := service.Login(context.Background(), LoginParams{
		Email:    "  Somchai@Example.co.th ",
		Password: "secret-1234",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.Employee.ID != 1 || result.Employee.Name != "สมชาย ใจดี" {
		t.Fatalf("unexpected employee: %+v", result.Employee)
	}
	if !result.IsAdmin {
		t.Fatal("expected admin flag")
	}
	if result.Token == "" {
		t.Fatal("expected session token")
	}
	if !result.ExpiresAt.Equal(now.Add(8 * time.Hour)) {
		t.Fatalf("unexpected expiry: %v", result.ExpiresAt)
	}
	if _, ok := sessions.sessions[result.Token]; !ok {
		t.Fatal("session must be persisted")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()

	service, _, _ := newAuthFixture(t)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "missing@example.co.th", "secret-1234"},
		{"wrong password", "somchai@example.co.th", "wrong"},
		{"blank email", "", "secret-1234"},
		{"blank password", "somchai@example.co.th", ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := service.Login(context.Background(), LoginParams{Email: tc.email, Password: tc.password})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestValidateSession(t *testing.T) {
	t.Parallel()

	service, sessions, now := newAuthFixture(t)

	result, err := service.Login(context.Background(), LoginParams{
		Email:    "somchai@example.co.th",
		Password: "secret-1234",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	principal, err := service.ValidateSession(context.Background(), result.Token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if principal.EmployeeID != 1 || !principal.IsAdmin {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	if _, err := service.ValidateSession(context.Background(), "unknown"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown token must be unauthorized, got %v", err)
	}
	if _, err := service.ValidateSession(context.Background(), ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("blank token must fail, got %v", err)
	}

	expired := sessions.sessions[result.Token]
	expired.ExpiresAt = now.Add(-time.Minute)
	sessions.sessions[result.Token] = expired
	if _, err := service.ValidateSession(context.Background(), result.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	t.Parallel()

	service, _, _ := newAuthFixture(t)

	result, err := service.Login(context.Background(), LoginParams{
		Email:    "somchai@example.co.th",
		Password: "secret-1234",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := service.Logout(context.Background(), result.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := service.ValidateSession(context.Background(), result.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}

	if err := service.Logout(context.Background(), "unknown"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown token logout must fail, got %v", err)
	}
}
