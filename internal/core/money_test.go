package core

import "testing"

func TestParseDecimalToPaise(t *testing.T) {
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
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"0", 0, true}, // zero parses; positivity is the caller's rule
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToPaise(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Paise: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Paise: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestMoneySub(t *testing.T) {
	got, err := Money{Paise: 500}.Sub(Money{Paise: 200})
	if err != nil || got.Paise != 300 {
		t.Fatalf("expected 300, got %d (err=%v)", got.Paise, err)
	}
	if _, err := (Money{Paise: 100}).Sub(Money{Paise: 200}); err == nil {
		t.Fatalf("expected error for negative result")
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := Money{Paise: 123450}.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "1234.50" {
		t.Fatalf("expected 1234.50, got %s", b)
	}

	var m Money
	if err := m.UnmarshalJSON([]byte("500")); err != nil || m.Paise != 50000 {
		t.Fatalf("number expected 50000, got %d (err=%v)", m.Paise, err)
	}
	if err := m.UnmarshalJSON([]byte(`"12.34"`)); err != nil || m.Paise != 1234 {
		t.Fatalf("string expected 1234, got %d (err=%v)", m.Paise, err)
	}
	if err := m.UnmarshalJSON([]byte(`"-1"`)); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestFormatPaise(t *testing.T) {
	cases := []struct {
		in  int64
		out string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{123, "1.23"},
		{-250, "-2.50"},
	}
	for _, tc := range cases {
		if got := FormatPaise(tc.in); got != tc.out {
			t.Fatalf("%d expected %q, got %q", tc.in, tc.out, got)
		}
	}
}
