package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/ports"
)

const minPasswordLength = 6

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid login credentials", core.ErrAuth)
	ErrAlreadyRegistered  = fmt.Errorf("%w: email already registered", core.ErrAuth)
	ErrSessionExpired     = fmt.Errorf("%w: session expired", core.ErrAuth)
	ErrNoSession          = fmt.Errorf("%w: session not found", core.ErrAuth)
)

// Config tunes session handling.
type Config struct {
	SessionTTL time.Duration
	CacheSize  int
	CacheTTL   time.Duration
	BcryptCost int
	Now        func() time.Time
}

func DefaultConfig() Config {
	return Config{
		SessionTTL: 24 * time.Hour,
		CacheSize:  500,
		CacheTTL:   5 * time.Minute,
		BcryptCost: bcrypt.DefaultCost,
		Now:        time.Now,
	}
}

// Service implements Provider on top of a user and a session store.
type Service struct {
	users    ports.UserStore
	sessions ports.SessionStore
	cfg      Config
	cache    *cache.LRUCache[Session]

	// compare is bcrypt.CompareHashAndPassword outside tests.
	compare   func(hash, password []byte) error
	dummyOnce sync.Once
	dummy     []byte

	mu        sync.Mutex
	nextSubID int
	subs      map[int]func(SessionEvent)
}

var _ Provider = (*Service)(nil)

func NewService(users ports.UserStore, sessions ports.SessionStore, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = def.BcryptCost
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	return &Service{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		cache:    cache.NewLRUCache[Session](cfg.CacheSize, cfg.CacheTTL),
		compare:  bcrypt.CompareHashAndPassword,
		subs:     make(map[int]func(SessionEvent)),
	}
}

// Cache exposes the session cache so a cache.Manager can sweep it.
func (s *Service) Cache() cache.Cleaner {
	return s.cache
}

// SignUp registers a new account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if len(password) < minPasswordLength {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", core.ErrValidation, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, ports.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.cfg.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, core.ErrAuth) {
			return Session{}, ErrAlreadyRegistered
		}
		return Session{}, fmt.Errorf("%w: create user: %w", core.ErrRemote, err)
	}
	slog.InfoContext(ctx, "User registered", "user_id", u.ID, "email", u.Email)
	return s.startSession(ctx, u)
}

// SignIn checks the credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	u, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Spend the same bcrypt time as a wrong password would.
			_ = s.compare(s.dummyHash(), []byte(password))
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("%w: lookup user: %w", core.ErrRemote, err)
	}
	if err := s.compare(u.PasswordHash, []byte(password)); err != nil {
		slog.WarnContext(ctx, "Sign-in rejected", "email", email)
		return Session{}, ErrInvalidCredentials
	}
	return s.startSession(ctx, u)
}

// dummyHash is a hash at the configured cost that matches no password a
// client can send.
func (s *Service) dummyHash() []byte {
	s.dummyOnce.Do(func() {
		secret := []byte(uuid.NewString())
		h, err := bcrypt.GenerateFromPassword(secret, s.cfg.BcryptCost)
		if err != nil {
			h, _ = bcrypt.GenerateFromPassword(secret, bcrypt.DefaultCost)
		}
		s.dummy = h
	})
	return s.dummy
}

// SignOut ends the session. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sess, err := s.lookup(ctx, token)
	s.cache.Delete(token)
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("%w: delete session: %w", core.ErrRemote, err)
	}
	if err == nil {
		s.publish(SessionEvent{Kind: SignedOut, Session: sess})
	}
	return nil
}

// Resolve returns the live session for a token.
func (s *Service) Resolve(ctx context.Context, token string) (Session, error) {
	if strings.TrimSpace(token) == "" {
		return Session{}, ErrNoSession
	}
	sess, err := s.lookup(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if sess.Expired(s.cfg.Now()) {
		s.cache.Delete(token)
		if err := s.sessions.DeleteSession(ctx, token); err != nil {
			slog.WarnContext(ctx, "Failed to drop expired session", "error", err, "user_id", sess.UserID)
		}
		s.publish(SessionEvent{Kind: SignedOut, Session: sess})
		return Session{}, ErrSessionExpired
	}
	return sess, nil
}

// OnSessionChange registers fn for sign-in and sign-out events. Callbacks
// run synchronously on the goroutine that caused the change.
func (s *Service) OnSessionChange(fn func(SessionEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Service) lookup(ctx context.Context, token string) (Session, error) {
	if sess, ok := s.cache.Get(token); ok {
		return sess, nil
	}
	rec, err := s.sessions.SessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("%w: lookup session: %w", core.ErrRemote, err)
	}
	sess := Session(rec)
	s.cache.Set(token, sess)
	return sess, nil
}

func (s *Service) startSession(ctx context.Context, u ports.User) (Session, error) {
	now := s.cfg.Now().UTC()
	sess := Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		Email:     u.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.SaveSession(ctx, ports.SessionRecord(sess)); err != nil {
		return Session{}, fmt.Errorf("%w: save session: %w", core.ErrRemote, err)
	}
	s.cache.Set(sess.Token, sess)
	s.publish(SessionEvent{Kind: SignedIn, Session: sess})
	return sess, nil
}

func (s *Service) publish(ev SessionEvent) {
	s.mu.Lock()
	subs := make([]func(SessionEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", core.ErrValidation)
	}
	return email, nil
}
