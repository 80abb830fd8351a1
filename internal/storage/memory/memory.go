// Package memory is an in-process implementation of the storage ports, used
// by tests and by DATA_BACKEND=memory.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finanzas/internal/core"
	"finanzas/internal/ports"
)

type Store struct {
	mu       sync.Mutex
	loc      *time.Location
	txs      []core.Transaction
	users    map[string]ports.User // keyed by email
	sessions map[string]ports.SessionRecord
}

var (
	_ ports.TransactionStore = (*Store)(nil)
	_ ports.UserStore        = (*Store)(nil)
	_ ports.SessionStore     = (*Store)(nil)
)

// New returns an empty store. loc is the zone used for Year filters.
func New(loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		loc:      loc,
		users:    make(map[string]ports.User),
		sessions: make(map[string]ports.SessionRecord),
	}
}

func (s *Store) Select(_ context.Context, f ports.Filter) ([]core.Transaction, error) {
	if f.UserID == "" {
		return nil, fmt.Errorf("%w: user id required", core.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		if tx.UserID != f.UserID {
			continue
		}
		if f.Year != 0 && tx.Date.In(s.loc).Year() != f.Year {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) Insert(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return tx, nil
}

func (s *Store) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.txs {
		if tx.ID == id && tx.UserID == userID {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, u ports.User) (ports.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return ports.User{}, fmt.Errorf("%w: email %q already registered", core.ErrAuth, u.Email)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.Email] = u
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (ports.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return ports.User{}, fmt.Errorf("user %q: %w", email, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) SaveSession(_ context.Context, rec ports.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.Token] = rec
	return nil
}

func (s *Store) SessionByToken(_ context.Context, token string) (ports.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[token]
	if !ok {
		return ports.SessionRecord{}, fmt.Errorf("session: %w", core.ErrNotFound)
	}
	return rec, nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// SeedFile loads demo transactions for userID from a text file with one
// "type;amount;description;YYYY-MM-DD" record per line. Blank lines and
// lines starting with # are skipped. A missing file seeds nothing.
func (s *Store) SeedFile(ctx context.Context, userID, path string) (int, error) {
	lines, err := readLines(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for i, line := range lines {
		tx, err := parseSeed(line, s.loc)
		if err != nil {
			return n, fmt.Errorf("%s:%d: %w", path, i+1, err)
		}
		tx.UserID = userID
		if _, err := s.Insert(ctx, tx); err != nil {
			return n, fmt.Errorf("%s:%d: %w", path, i+1, err)
		}
		n++
	}
	return n, nil
}

func parseSeed(line string, loc *time.Location) (core.Transaction, error) {
	parts := strings.Split(line, ";")
	if len(parts) != 4 {
		return core.Transaction{}, fmt.Errorf("%w: want 4 fields, got %d", core.ErrValidation, len(parts))
	}
	kind, err := core.ParseKind(parts[0])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(parts[1])
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[3]), loc)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", core.ErrInvalidDate, err)
	}
	return core.Transaction{
		Kind:        kind,
		Amount:      amount,
		Description: strings.TrimSpace(parts[2]),
		Date:        date,
	}, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
