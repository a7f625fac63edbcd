package http

import (
	"time"

	"fundbook/internal/core"
)

// Wire shapes match the field names the web client binds to, `_id` included.

type installmentDTO struct {
	ID     string     `json:"_id"`
	Amount core.Money `json:"amount"`
	Date   string     `json:"date"`
}

type contributionDTO struct {
	ID              string           `json:"_id"`
	Name            string           `json:"name"`
	PromisedAmount  core.Money       `json:"promisedAmount"`
	TotalPaid       core.Money       `json:"totalPaid"`
	RemainingAmount core.Money       `json:"remainingAmount"`
	Installments    []installmentDTO `json:"installments"`
}

type entryDTO struct {
	ID              string     `json:"_id"`
	Amount          core.Money `json:"amount"`
	Purpose         string     `json:"purpose"`
	Date            string     `json:"date"`
	UsedAmount      core.Money `json:"usedAmount"`
	RemainingAmount core.Money `json:"remainingAmount"`
}

type usageDTO struct {
	ID      string     `json:"_id"`
	EntryID string     `json:"entryId"`
	Amount  core.Money `json:"amount"`
	Purpose string     `json:"purpose"`
	Date    string     `json:"date"`
}

type withdrawalAccountDTO struct {
	ID             string     `json:"_id"`
	Name           string     `json:"name"`
	Withdrawals    []entryDTO `json:"withdrawals"`
	Usages         []usageDTO `json:"usages"`
	TotalWithdrawn core.Money `json:"totalWithdrawn"`
	TotalUsed      core.Money `json:"totalUsed"`
}

type summaryDTO struct {
	Persons        int        `json:"persons"`
	TotalPromised  core.Money `json:"totalPromised"`
	TotalPaid      core.Money `json:"totalPaid"`
	TotalPending   core.Money `json:"totalPending"`
	TotalWithdrawn core.Money `json:"totalWithdrawn"`
	Balance        core.Money `json:"balance"`
}

func toContributionDTO(c *core.Contribution) contributionDTO {
	dto := contributionDTO{
		ID:              c.ID,
		Name:            c.Name,
		PromisedAmount:  c.Promised,
		TotalPaid:       c.TotalPaid(),
		RemainingAmount: c.Remaining(),
		Installments:    make([]installmentDTO, 0, len(c.Installments)),
	}
	for _, in := range c.Installments {
		dto.Installments = append(dto.Installments, installmentDTO{
			ID:     in.ID,
			Amount: in.Amount,
			Date:   in.PaidAt.UTC().Format(time.RFC3339),
		})
	}
	return dto
}

func toWithdrawalAccountDTO(a *core.WithdrawalAccount) withdrawalAccountDTO {
	dto := withdrawalAccountDTO{
		ID:             a.ID,
		Name:           a.Name,
		Withdrawals:    make([]entryDTO, 0, len(a.Entries)),
		Usages:         make([]usageDTO, 0, len(a.Usages)),
		TotalWithdrawn: a.TotalWithdrawn(),
		TotalUsed:      a.TotalUsed(),
	}
	for i := range a.Entries {
		e := &a.Entries[i]
		dto.Withdrawals = append(dto.Withdrawals, entryDTO{
			ID:              e.ID,
			Amount:          e.Amount,
			Purpose:         e.Purpose,
			Date:            e.TakenAt.UTC().Format(time.RFC3339),
			UsedAmount:      a.UsedFor(e.ID),
			RemainingAmount: a.RemainingFor(e),
		})
	}
	for _, u := range a.Usages {
		dto.Usages = append(dto.Usages, usageDTO{
			ID:      u.ID,
			EntryID: u.EntryID,
			Amount:  u.Amount,
			Purpose: u.Purpose,
			Date:    u.SpentAt.UTC().Format(time.RFC3339),
		})
	}
	return dto
}

func toSummaryDTO(ov core.FundOverview) summaryDTO {
	return summaryDTO{
		Persons:        ov.Persons,
		TotalPromised:  ov.TotalPromised,
		TotalPaid:      ov.TotalPaid,
		TotalPending:   ov.TotalPending,
		TotalWithdrawn: ov.TotalWithdrawn,
		Balance:        core.Money{Paise: ov.BalancePaise},
	}
}
