package reclass

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FinanceCostCenter is the sentinel cost-center identity whose records
// receive the offsetting debit instead of a credit line.
const FinanceCostCenter = "11102001-Diretoria Financeira"

// RawRecord is one line item returned by the reclassification API, already
// validated into typed fields. Immutable once fetched.
type RawRecord struct {
	BranchCode        int             // FIL_IN_CODIGO
	CostCenter        string          // CENTROCUSTO, "code-label"
	CostCenterReduced int             // CUS_IN_REDUZIDO
	Account           string          // CONTA
	CreditAmount      decimal.Decimal // VALORCREDITO, signed
}

// CostCenterClass is the derived classification of a record's cost center.
type CostCenterClass int

const (
	// ClassOther covers every cost center that receives a credit line,
	// including the Operational Directorate (no longer special-cased).
	ClassOther CostCenterClass = iota
	// ClassFinanceDirectorate marks the center that receives the debit.
	ClassFinanceDirectorate
)

// Classify derives the record's cost-center class.
func (r RawRecord) Classify() CostCenterClass {
	if r.CostCenter == FinanceCostCenter {
		return ClassFinanceDirectorate
	}
	return ClassOther
}

// CostCenterLabel returns the human-readable part of the cost-center field
// ("11102001-Diretoria Financeira" -> "Diretoria Financeira"). Falls back
// to the whole field when there is no separator.
func (r RawRecord) CostCenterLabel() string {
	if _, label, ok := strings.Cut(r.CostCenter, "-"); ok {
		return label
	}
	return r.CostCenter
}
