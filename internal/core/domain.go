package core

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind tells whether a transaction adds to or subtracts from a balance.
	Kind string

	Money struct {
		Cents int64
	}

	// Transaction is a stored ledger record. ID and UserID are assigned by
	// the store and the session respectively, never by the caller.
	Transaction struct {
		ID          string
		UserID      string
		Kind        Kind
		Amount      Money
		Description string
		Date        time.Time
	}

	// Draft is a transaction as submitted by a user, before the store has
	// assigned it an identity.
	Draft struct {
		Kind        Kind
		Amount      Money
		Description string
		Date        time.Time
	}
)

var (
	ErrInvalidKind        = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidDate        = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long (max 200 characters)", ErrValidation)
)

// ParseKind accepts the canonical names plus the legacy labels "ingreso"
// and "gasto" found in older data.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "ingreso":
		return Income, nil
	case "expense", "gasto":
		return Expense, nil
	}
	return "", ErrInvalidKind
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (k Kind) String() string {
	return string(k)
}

func (m Money) Validate() error {
	if m.Cents < 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

// Signed returns the contribution of an amount of the given kind to a balance.
func (m Money) Signed(k Kind) Money {
	if k == Expense {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Signed is the transaction's contribution to any balance it is bucketed in.
func (t Transaction) Signed() Money {
	return t.Amount.Signed(t.Kind)
}

func (d Draft) Validate() error {
	if !d.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if d.Date.IsZero() {
		return ErrInvalidDate
	}
	if utf8.RuneCountInString(d.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

// Bind attaches the draft to its owner. The id is left empty for the store.
func (d Draft) Bind(userID string) Transaction {
	return Transaction{
		UserID:      userID,
		Kind:        d.Kind,
		Amount:      d.Amount,
		Description: d.Description,
		Date:        d.Date,
	}
}

// Validate checks a stored record; unlike a Draft it must carry its owner.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("%w: transaction without owner", ErrValidation)
	}
	return Draft{Kind: t.Kind, Amount: t.Amount, Description: t.Description, Date: t.Date}.Validate()
}
