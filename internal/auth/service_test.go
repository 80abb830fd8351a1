package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"finanzas/internal/core"
	"finanzas/internal/storage/memory"
)

func newTestService(t *testing.T, now func() time.Time) *Service {
	t.Helper()
	store := memory.New(time.UTC)
	return NewService(store, store, Config{
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
		Now:        now,
	})
}

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	sess, err := svc.SignUp(ctx, "  Ana@Example.com ", "secret1")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if sess.UserID == "" || sess.Token == "" {
		t.Fatalf("incomplete session: %+v", sess)
	}
	if sess.Email != "ana@example.com" {
		t.Errorf("email = %q, want normalised", sess.Email)
	}
	if err := sess.Valid(); err != nil {
		t.Errorf("Valid: %v", err)
	}

	again, err := svc.SignIn(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if again.UserID != sess.UserID || again.Token == sess.Token {
		t.Errorf("SignIn should open a new session for the same user: %+v vs %+v", again, sess)
	}
}

func TestSignUpRejections(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	if _, err := svc.SignUp(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"duplicate", "ana@example.com", "another1", core.ErrAuth},
		{"short password", "bob@example.com", "12345", core.ErrValidation},
		{"bad email", "not-an-email", "secret1", core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	if _, err := svc.SignUp(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	for _, c := range [][2]string{
		{"ana@example.com", "wrong!!"},
		{"nobody@example.com", "secret1"},
		{"garbage", "secret1"},
	} {
		if _, err := svc.SignIn(ctx, c[0], c[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("SignIn(%q) err = %v", c[0], err)
		}
	}
}

func TestSignInUnknownEmailStillComparesHash(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	if _, err := svc.SignUp(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	var compared [][]byte
	svc.compare = func(hash, password []byte) error {
		compared = append(compared, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	if _, err := svc.SignIn(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v", err)
	}
	if _, err := svc.SignIn(ctx, "ana@example.com", "wrong!!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if len(compared) != 2 {
		t.Fatalf("bcrypt comparisons = %d, want one per attempt", len(compared))
	}
	cost, err := bcrypt.Cost(compared[0])
	if err != nil || cost != bcrypt.MinCost {
		t.Errorf("dummy hash cost = %d, %v; want the configured cost", cost, err)
	}
}

func TestResolveAndSignOut(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	sess, err := svc.SignUp(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.Resolve(ctx, sess.Token)
	if err != nil || got.UserID != sess.UserID {
		t.Fatalf("Resolve = %+v, %v", got, err)
	}
	if err := svc.SignOut(ctx, sess.Token); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := svc.Resolve(ctx, sess.Token); !errors.Is(err, core.ErrAuth) {
		t.Fatalf("Resolve after sign-out err = %v", err)
	}
	if err := svc.SignOut(ctx, "unknown"); err != nil {
		t.Fatalf("SignOut of unknown token: %v", err)
	}
	if _, err := svc.Resolve(ctx, ""); !errors.Is(err, core.ErrAuth) {
		t.Fatalf("Resolve empty err = %v", err)
	}
}

func TestResolveExpiredSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, func() time.Time { return now })

	sess, err := svc.SignUp(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := svc.Resolve(ctx, sess.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want expired", err)
	}
	if _, err := svc.Resolve(ctx, sess.Token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expired session should be gone, err = %v", err)
	}
}

func TestOnSessionChange(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	var events []SessionEvent
	unsubscribe := svc.OnSessionChange(func(ev SessionEvent) { events = append(events, ev) })

	sess, err := svc.SignUp(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.SignOut(ctx, sess.Token); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Kind != SignedIn || events[1].Kind != SignedOut {
		t.Fatalf("events = %+v", events)
	}
	if events[1].Session.UserID != sess.UserID {
		t.Errorf("sign-out event user = %q", events[1].Session.UserID)
	}

	unsubscribe()
	if _, err := svc.SignIn(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Errorf("unsubscribed callback still invoked: %d events", len(events))
	}
}

func TestSessionValid(t *testing.T) {
	if err := (Session{}).Valid(); !errors.Is(err, core.ErrAuth) {
		t.Fatalf("empty session err = %v", err)
	}
	s := Session{UserID: "u", ExpiresAt: time.Unix(100, 0)}
	if !s.Expired(time.Unix(100, 0)) || s.Expired(time.Unix(99, 0)) {
		t.Error("Expired boundary wrong")
	}
}
