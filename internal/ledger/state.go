// Package ledger holds the in-memory view of one user's transactions and
// derives period balances from it.
//
// A State is a pure function of the snapshot it was loaded from: it never
// talks to a store, and every mutation goes through a remote write followed
// by a full reload (see Service).
package ledger

import (
	"sort"
	"time"

	"finanzas/internal/core"
)

// State is an immutable snapshot of a user's ledger, ordered by date with
// the most recent transaction first.
type State struct {
	txs []core.Transaction
	loc *time.Location
}

// Summary holds the two headline balances shown next to the ledger.
type Summary struct {
	Month        core.Period
	Year         core.Period
	MonthBalance core.Money
	YearBalance  core.Money
}

// Load replaces any previous state with the given snapshot. Buckets are
// computed in loc; a nil loc means the process wall-clock zone.
func Load(txs []core.Transaction, loc *time.Location) State {
	if loc == nil {
		loc = time.Local
	}
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return State{txs: out, loc: loc}
}

// Len is the number of loaded transactions.
func (s State) Len() int {
	return len(s.txs)
}

// Location is the zone transactions are bucketed in.
func (s State) Location() *time.Location {
	if s.loc == nil {
		return time.Local
	}
	return s.loc
}

// All returns every transaction, most recent first.
func (s State) All() []core.Transaction {
	out := make([]core.Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}

// Balance sums the signed contributions of every transaction in p.
func (s State) Balance(p core.Period) core.Money {
	var total core.Money
	loc := s.Location()
	for _, tx := range s.txs {
		if p.Contains(tx.Date, loc) {
			total = total.Add(tx.Signed())
		}
	}
	return total
}

// Transactions returns the transactions in p, most recent first. The result
// is never nil.
func (s State) Transactions(p core.Period) []core.Transaction {
	out := make([]core.Transaction, 0)
	loc := s.Location()
	for _, tx := range s.txs {
		if p.Contains(tx.Date, loc) {
			out = append(out, tx)
		}
	}
	return out
}

// Summary computes the month and annual balances for the periods holding now.
func (s State) Summary(now time.Time) Summary {
	month, year := core.CurrentPeriods(now, s.Location())
	return Summary{
		Month:        month,
		Year:         year,
		MonthBalance: s.Balance(month),
		YearBalance:  s.Balance(year),
	}
}

// MonthsWithData lists, in ascending order, the months of year holding at
// least one transaction.
func (s State) MonthsWithData(year int) []int {
	var seen [13]bool
	loc := s.Location()
	for _, tx := range s.txs {
		d := tx.Date.In(loc)
		if d.Year() == year {
			seen[int(d.Month())] = true
		}
	}
	var out []int
	for m := 1; m <= 12; m++ {
		if seen[m] {
			out = append(out, m)
		}
	}
	return out
}

// Find looks a transaction up by id.
func (s State) Find(id string) (core.Transaction, bool) {
	for _, tx := range s.txs {
		if tx.ID == id {
			return tx, true
		}
	}
	return core.Transaction{}, false
}
