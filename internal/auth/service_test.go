package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caldew/workdesk/internal/domain"
)

type fakeUsers struct {
	byEmail map[string]*domain.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*domain.User{}}
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	if _, ok := f.byEmail[user.Email]; ok {
		return domain.ErrUserExists
	}
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func TestRegisterLoginVerify(t *testing.T) {
	svc := NewService(newFakeUsers(), "test-secret")
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "User@Example.com", "longpassword")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "user@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.PasswordHash == "longpassword" {
		t.Fatal("password stored in plain text")
	}

	uid, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if uid != user.ID {
		t.Fatalf("expected %q, got %q", user.ID, uid)
	}

	if _, _, err := svc.Login(ctx, "user@example.com", "longpassword"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := svc.Login(ctx, "user@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "ghost@example.com", "whatever"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := NewService(newFakeUsers(), "test-secret")

	if _, _, err := svc.Register(context.Background(), "a@b.c", "short"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc := NewService(newFakeUsers(), "test-secret")
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "a@b.c", "longpassword"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.Register(ctx, "a@b.c", "longpassword"); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	svc := NewService(newFakeUsers(), "test-secret")
	svc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }

	_, token, err := svc.Register(context.Background(), "a@b.c", "longpassword")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	svc.now = time.Now
	if _, err := svc.VerifyToken(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
