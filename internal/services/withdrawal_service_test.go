package services

import (
	"context"
	"testing"

	"fundbook/internal/core"
)

func TestWithdrawalService_Lifecycle(t *testing.T) {
	repo := newTestStorage(t)
	pub := &fakePublisher{}
	svc := NewWithdrawalService(repo, pub)
	ctx := context.Background()

	a, err := svc.Create(ctx, "Festival 2026", rupees(500), "Festival expenses")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	a, err = svc.AddEntry(ctx, a.ID, rupees(300), "")
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if a.TotalWithdrawn().Paise != 80000 {
		t.Errorf("total withdrawn = %d, want 80000", a.TotalWithdrawn().Paise)
	}

	a, err = svc.AddUsage(ctx, a.ID, a.Entries[0].ID, rupees(200), "Flowers")
	if err != nil {
		t.Fatalf("AddUsage: %v", err)
	}
	if a.TotalUsed().Paise != 20000 {
		t.Errorf("total used = %d, want 20000", a.TotalUsed().Paise)
	}

	if pub.count() != 3 {
		t.Errorf("published = %d, want 3", pub.count())
	}
}

func TestWithdrawalService_GrandTotal(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewWithdrawalService(repo, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "Festival 2026", rupees(500), ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	a, err := svc.Create(ctx, "Temple repair", rupees(300), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.AddEntry(ctx, a.ID, rupees(100), ""); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	total, err := svc.GrandTotal(ctx)
	if err != nil {
		t.Fatalf("GrandTotal: %v", err)
	}
	if total.Paise != 90000 {
		t.Errorf("grand total = %d, want 90000", total.Paise)
	}
}

func TestSummaryService_Overview(t *testing.T) {
	repo := newTestStorage(t)
	contribSvc := NewContributionService(repo, nil)
	withdrawSvc := NewWithdrawalService(repo, nil)
	summarySvc := NewSummaryService(repo)
	ctx := context.Background()

	if _, err := contribSvc.Create(ctx, "Ramesh Kumar", rupees(1000), rupees(400)); err != nil {
		t.Fatalf("Create contribution: %v", err)
	}
	if _, err := contribSvc.Create(ctx, "Sita Devi", rupees(500), core.Money{}); err != nil {
		t.Fatalf("Create contribution: %v", err)
	}
	if _, err := withdrawSvc.Create(ctx, "Festival 2026", rupees(600), ""); err != nil {
		t.Fatalf("Create withdrawal: %v", err)
	}

	ov, err := summarySvc.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov.Persons != 2 {
		t.Errorf("persons = %d, want 2", ov.Persons)
	}
	if ov.TotalPromised.Paise != 150000 {
		t.Errorf("promised = %d, want 150000", ov.TotalPromised.Paise)
	}
	if ov.TotalPaid.Paise != 40000 {
		t.Errorf("paid = %d, want 40000", ov.TotalPaid.Paise)
	}
	if ov.TotalWithdrawn.Paise != 60000 {
		t.Errorf("withdrawn = %d, want 60000", ov.TotalWithdrawn.Paise)
	}
	// balance can go negative, never clamped
	if ov.BalancePaise != -20000 {
		t.Errorf("balance = %d, want -20000", ov.BalancePaise)
	}
}
