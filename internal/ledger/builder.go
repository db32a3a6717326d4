package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/osacfin/reclass-cc14/internal/reclass"
)

// Side is the posting side of an entry.
type Side string

const (
	Credit Side = "C"
	Debit  Side = "D"
)

// Narrative is the fixed complement attached to every entry.
const Narrative = "Reclassificaçao de CC Osac"

// Entry is one posting unit sent to the accounting API. Built, never
// mutated.
type Entry struct {
	BranchCode         int
	ReducedAccountCode int
	Side               Side
	Amount             decimal.Decimal
	CostCenterReduced  int
	Narrative          string
	ProjectReduced     int
}

// Build converts a transform result into ledger entries: one credit per
// credit line in order, then exactly one debit for the finance directorate
// when present. When the debit exists, credits and debits balance exactly.
func Build(res *reclass.Result, accountCode, projectCode int) []Entry {
	entries := make([]Entry, 0, len(res.CreditLines)+1)

	for _, line := range res.CreditLines {
		entries = append(entries, Entry{
			BranchCode:         line.BranchCode,
			ReducedAccountCode: accountCode,
			Side:               Credit,
			Amount:             line.CreditAmount,
			CostCenterReduced:  line.CostCenterReduced,
			Narrative:          Narrative,
			ProjectReduced:     projectCode,
		})
	}

	if res.FinanceDebit != nil {
		entries = append(entries, Entry{
			BranchCode:         res.FinanceDebit.BranchCode,
			ReducedAccountCode: accountCode,
			Side:               Debit,
			Amount:             res.FinanceDebit.Amount,
			CostCenterReduced:  res.FinanceDebit.CostCenterReduced,
			Narrative:          Narrative,
			ProjectReduced:     projectCode,
		})
	}

	return entries
}

// Balanced reports whether the credit and debit sides of the entries sum to
// the same amount. Only meaningful when a debit entry exists.
func Balanced(entries []Entry) bool {
	credits, debits := decimal.Zero, decimal.Zero
	for _, e := range entries {
		switch e.Side {
		case Credit:
			credits = credits.Add(e.Amount)
		case Debit:
			debits = debits.Add(e.Amount)
		}
	}
	return credits.Equal(debits)
}
