package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"0", 0, true},
		{".5", 50, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{"12.345", 1235, true},
		{" 2.50 ", 250, true},
		{"5.", 500, true},
		{"1e5", 0, false},
		{"١٢", 0, false},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{".", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
		{"100000000000", 1e13, true},
		{"100000000000.01", 0, false},
		{"92233720368547758.07", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		1:      "0.01",
		10:     "0.10",
		6000:   "60.00",
		-4000:  "-40.00",
		-5:     "-0.05",
		123456: "1234.56",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneySigned(t *testing.T) {
	m := Money{Cents: 4000}
	if got := m.Signed(Income); got.Cents != 4000 {
		t.Fatalf("income contribution = %d", got.Cents)
	}
	if got := m.Signed(Expense); got.Cents != -4000 {
		t.Fatalf("expense contribution = %d", got.Cents)
	}
}

func TestMaxAmountsCannotOverflowABalance(t *testing.T) {
	if err := (Money{Cents: MaxAmountCents}).Validate(); err != nil {
		t.Fatalf("ceiling should validate: %v", err)
	}
	if err := (Money{Cents: MaxAmountCents + 1}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("above ceiling err = %v", err)
	}
	var sum Money
	for i := 0; i < 1000; i++ {
		sum = sum.Add(Money{Cents: MaxAmountCents}.Signed(Income))
	}
	if sum.Cents != 1000*MaxAmountCents || sum.Cents < 0 {
		t.Errorf("sum = %d", sum.Cents)
	}
}
