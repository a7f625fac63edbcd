package core

import (
	"testing"
	"time"
)

func TestOverview(t *testing.T) {
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var contribs []Contribution
	for _, tc := range []struct{ promised, paid int64 }{
		{1000, 200},
		{500, 500},
		{300, 0},
	} {
		c, err := NewContribution("p", rupees(tc.promised), rupees(tc.paid), ts)
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
		contribs = append(contribs, *c)
	}

	a, err := NewWithdrawalAccount("w", rupees(900), "", ts)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	accounts := []WithdrawalAccount{*a}

	ov := Overview(contribs, accounts)
	if ov.Persons != 3 {
		t.Fatalf("persons expected 3, got %d", ov.Persons)
	}
	if ov.TotalPromised.Paise != 1800*100 {
		t.Fatalf("promised expected 1800, got %s", ov.TotalPromised)
	}
	if ov.TotalPaid.Paise != 700*100 {
		t.Fatalf("paid expected 700, got %s", ov.TotalPaid)
	}
	if ov.TotalPending.Paise != 1100*100 {
		t.Fatalf("pending expected 1100, got %s", ov.TotalPending)
	}
	if ov.TotalWithdrawn.Paise != 900*100 {
		t.Fatalf("withdrawn expected 900, got %s", ov.TotalWithdrawn)
	}
	// Balance is a signed projection: 700 paid - 900 withdrawn = -200.
	if ov.BalancePaise != -200*100 {
		t.Fatalf("balance expected -200, got %d", ov.BalancePaise)
	}
}

func TestOverviewEmpty(t *testing.T) {
	ov := Overview(nil, nil)
	if ov.Persons != 0 || ov.BalancePaise != 0 || !ov.TotalPromised.IsZero() {
		t.Fatalf("empty overview should be all zeros, got %+v", ov)
	}
}

func TestGrandTotalWithdrawn(t *testing.T) {
	ts := time.Now()
	var accounts []WithdrawalAccount
	for _, amt := range []int64{100, 250} {
		a, err := NewWithdrawalAccount("w", rupees(amt), "", ts)
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
		accounts = append(accounts, *a)
	}
	if got := GrandTotalWithdrawn(accounts); got.Paise != 350*100 {
		t.Fatalf("expected 350, got %s", got)
	}
}
