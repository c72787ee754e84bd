package store

import (
	"errors"
	"testing"
	"time"

	"github.com/caldew/workdesk/internal/domain"
)

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("test-secret")

	token, err := s.Sign("u1/photo.png", "thumbnail", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	link, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if link.Path != "u1/photo.png" || link.Transform != "thumbnail" {
		t.Fatalf("unexpected link: %#v", link)
	}
}

func TestSignerExpiredToken(t *testing.T) {
	s := NewSigner("test-secret")
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := s.Sign("u1/photo.png", "", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	s.now = time.Now
	if _, err := s.Verify(token); !errors.Is(err, domain.ErrLinkExpired) {
		t.Fatalf("expected ErrLinkExpired, got %v", err)
	}
}

func TestSignerRejectsTampering(t *testing.T) {
	s := NewSigner("test-secret")

	token, err := s.Sign("u1/photo.png", "", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other := NewSigner("other-secret")
	if _, err := other.Verify(token); !errors.Is(err, domain.ErrLinkExpired) {
		t.Fatalf("expected rejection of foreign signature, got %v", err)
	}

	if _, err := s.Verify(token + "x"); !errors.Is(err, domain.ErrLinkExpired) {
		t.Fatalf("expected rejection of mangled token, got %v", err)
	}
}
