package core

// FundOverview is the dashboard projection over all ledgers. It is computed
// on demand by folding snapshots and never stored; the balance is a signed
// paise value because the fund may legitimately run negative.
type FundOverview struct {
	Persons        int
	TotalPromised  Money
	TotalPaid      Money
	TotalPending   Money
	TotalWithdrawn Money
	BalancePaise   int64
}

// Overview folds contribution and withdrawal snapshots into the dashboard
// numbers: promised/paid/pending across contributions, withdrawn across
// accounts, and balance = paid - withdrawn.
func Overview(contributions []Contribution, accounts []WithdrawalAccount) FundOverview {
	var ov FundOverview
	ov.Persons = len(contributions)
	for i := range contributions {
		c := &contributions[i]
		ov.TotalPromised = ov.TotalPromised.Add(c.Promised)
		ov.TotalPaid = ov.TotalPaid.Add(c.TotalPaid())
		ov.TotalPending = ov.TotalPending.Add(c.Remaining())
	}
	for i := range accounts {
		ov.TotalWithdrawn = ov.TotalWithdrawn.Add(accounts[i].TotalWithdrawn())
	}
	ov.BalancePaise = ov.TotalPaid.Paise - ov.TotalWithdrawn.Paise
	return ov
}

// GrandTotalWithdrawn sums total withdrawals across all accounts.
func GrandTotalWithdrawn(accounts []WithdrawalAccount) Money {
	var total Money
	for i := range accounts {
		total = total.Add(accounts[i].TotalWithdrawn())
	}
	return total
}
