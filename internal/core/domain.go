package core

import (
	"strings"
	"time"
)

type (
	// Installment is one payment applied toward a contribution's promised
	// amount. Immutable once recorded; the store assigns the id.
	Installment struct {
		ID     string
		Amount Money
		PaidAt time.Time
	}

	// Contribution is one person's pledge and its payment history.
	// Installments are kept in chronological insertion order.
	Contribution struct {
		ID           string
		Name         string
		Promised     Money
		Installments []Installment
		CreatedAt    time.Time
		// Version counts committed mutations; the store bumps it on every
		// write and the export worker uses it to detect stale snapshots.
		Version int64
	}

	// Entry is one withdrawal transaction. Purpose may be empty; an entry's
	// usages account for how the cash was spent.
	Entry struct {
		ID      string
		Amount  Money
		Purpose string
		TakenAt time.Time
	}

	// Usage is one expense record allocated against a specific withdrawal
	// entry. Unlike Entry, its purpose is required.
	Usage struct {
		ID      string
		EntryID string
		Amount  Money
		Purpose string
		SpentAt time.Time
	}

	// WithdrawalAccount is one person's running record of cash taken from
	// the fund, with per-entry usage allocations.
	WithdrawalAccount struct {
		ID        string
		Name      string
		Entries   []Entry
		Usages    []Usage
		CreatedAt time.Time
		Version   int64
	}
)

// NewContribution validates and builds a contribution. A positive initial
// payment becomes the first installment with the creation timestamp; a zero
// initial payment records nothing.
func NewContribution(name string, promised, initial Money, now time.Time) (*Contribution, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalidf(ErrEmptyName, "name must not be empty")
	}
	if err := promised.Validate(); err != nil {
		return nil, Invalidf(err, "promised amount must be positive")
	}
	if initial.Paise < 0 {
		return nil, Invalidf(ErrInvalidAmount, "initial payment must not be negative")
	}
	if promised.LessThan(initial) {
		return nil, Invalidf(ErrExceedsPromise, "initial payment %s exceeds promised amount %s", initial, promised)
	}
	c := &Contribution{
		Name:      name,
		Promised:  promised,
		CreatedAt: now,
	}
	if !initial.IsZero() {
		c.Installments = append(c.Installments, Installment{Amount: initial, PaidAt: now})
	}
	return c, nil
}

// TotalPaid sums all installments.
func (c *Contribution) TotalPaid() Money {
	var total Money
	for _, in := range c.Installments {
		total = total.Add(in.Amount)
	}
	return total
}

// Remaining is the promised amount minus the total paid. Never negative:
// AddInstallment rejects payments that would overshoot.
func (c *Contribution) Remaining() Money {
	rem, err := c.Promised.Sub(c.TotalPaid())
	if err != nil {
		// totalPaid <= promised holds by construction
		return Money{}
	}
	return rem
}

// FullyPaid reports whether the pledge is settled.
func (c *Contribution) FullyPaid() bool {
	return c.Remaining().IsZero()
}

// AddInstallment appends a payment, enforcing totalPaid <= promisedAmount
// against the contribution's current state. The caller must hold the latest
// persisted snapshot; the store runs this inside its atomic mutate step.
func (c *Contribution) AddInstallment(amount Money, now time.Time) (*Installment, error) {
	if err := amount.Validate(); err != nil {
		return nil, Invalidf(err, "installment amount must be positive")
	}
	if rem := c.Remaining(); rem.LessThan(amount) {
		return nil, Invalidf(ErrExceedsPromise, "installment %s exceeds remaining amount %s", amount, rem)
	}
	c.Installments = append(c.Installments, Installment{Amount: amount, PaidAt: now})
	return &c.Installments[len(c.Installments)-1], nil
}

// NewWithdrawalAccount validates and builds an account with its first entry.
// The entry purpose is optional.
func NewWithdrawalAccount(name string, amount Money, purpose string, now time.Time) (*WithdrawalAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalidf(ErrEmptyName, "name must not be empty")
	}
	if err := amount.Validate(); err != nil {
		return nil, Invalidf(err, "withdrawal amount must be positive")
	}
	return &WithdrawalAccount{
		Name:      name,
		Entries:   []Entry{{Amount: amount, Purpose: strings.TrimSpace(purpose), TakenAt: now}},
		CreatedAt: now,
	}, nil
}

// TotalWithdrawn sums all entries.
func (a *WithdrawalAccount) TotalWithdrawn() Money {
	var total Money
	for _, e := range a.Entries {
		total = total.Add(e.Amount)
	}
	return total
}

// TotalUsed sums all usages across entries.
func (a *WithdrawalAccount) TotalUsed() Money {
	var total Money
	for _, u := range a.Usages {
		total = total.Add(u.Amount)
	}
	return total
}

// Entry returns the entry with the given id, if it belongs to this account.
func (a *WithdrawalAccount) Entry(entryID string) (*Entry, bool) {
	for i := range a.Entries {
		if a.Entries[i].ID == entryID {
			return &a.Entries[i], true
		}
	}
	return nil, false
}

// UsedFor sums the usages allocated against one entry.
func (a *WithdrawalAccount) UsedFor(entryID string) Money {
	var total Money
	for _, u := range a.Usages {
		if u.EntryID == entryID {
			total = total.Add(u.Amount)
		}
	}
	return total
}

// RemainingFor is an entry's amount minus its allocated usages.
func (a *WithdrawalAccount) RemainingFor(entry *Entry) Money {
	rem, err := entry.Amount.Sub(a.UsedFor(entry.ID))
	if err != nil {
		// usedFor(entry) <= entry.amount holds by construction
		return Money{}
	}
	return rem
}

// AddEntry appends a withdrawal transaction. Purpose is optional.
func (a *WithdrawalAccount) AddEntry(amount Money, purpose string, now time.Time) (*Entry, error) {
	if err := amount.Validate(); err != nil {
		return nil, Invalidf(err, "withdrawal amount must be positive")
	}
	a.Entries = append(a.Entries, Entry{Amount: amount, Purpose: strings.TrimSpace(purpose), TakenAt: now})
	return &a.Entries[len(a.Entries)-1], nil
}

// AddUsage allocates an expense against an existing entry. Checks run in
// order: entry membership, amount positivity, per-entry remaining, purpose.
// The usage purpose is required even though the entry's own purpose may be
// empty; callers compose category and free text before calling.
func (a *WithdrawalAccount) AddUsage(entryID string, amount Money, purpose string, now time.Time) (*Usage, error) {
	entry, ok := a.Entry(entryID)
	if !ok {
		return nil, &NotFoundError{Kind: "withdrawal entry", ID: entryID}
	}
	if err := amount.Validate(); err != nil {
		return nil, Invalidf(err, "usage amount must be positive")
	}
	if rem := a.RemainingFor(entry); rem.LessThan(amount) {
		return nil, Invalidf(ErrExceedsEntry, "usage %s exceeds remaining %s for this withdrawal", amount, rem)
	}
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return nil, Invalidf(ErrEmptyPurpose, "usage purpose must not be empty")
	}
	a.Usages = append(a.Usages, Usage{EntryID: entryID, Amount: amount, Purpose: purpose, SpentAt: now})
	return &a.Usages[len(a.Usages)-1], nil
}

// UsagesFor returns the usages allocated against one entry, in insertion
// order.
func (a *WithdrawalAccount) UsagesFor(entryID string) []Usage {
	var out []Usage
	for _, u := range a.Usages {
		if u.EntryID == entryID {
			out = append(out, u)
		}
	}
	return out
}
