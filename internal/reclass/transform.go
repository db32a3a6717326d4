package reclass

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransformError reports malformed input to the business rule: a record
// missing a required field or carrying an unusable value. Valid business
// states such as "no finance record" are not errors.
type TransformError struct {
	Index  int
	Field  string
	Reason string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("record %d: field %s: %s", e.Index, e.Field, e.Reason)
}

// FinanceDebit describes the single offsetting debit posted against the
// finance directorate. Amount equals the sum of every credit line.
type FinanceDebit struct {
	BranchCode        int
	CostCenterReduced int
	CostCenterLabel   string
	Amount            decimal.Decimal
}

// Result is the transform output. CreditLines holds every non-Finance
// record in original order; FullRecords holds the unfiltered input for the
// report export. FinanceDebit is nil when no finance-directorate record
// exists.
type Result struct {
	CreditLines  []RawRecord
	FinanceDebit *FinanceDebit
	FullRecords  []RawRecord
}

// Transform applies the redistribution rule: every non-Finance record
// becomes a credit line, and the finance directorate receives one debit for
// the signed sum of all credit amounts. The current rule treats all
// non-Finance centers uniformly; the earlier variant that dropped the
// Operational Directorate from the credit lines while keeping it in the sum
// is superseded.
func Transform(records []RawRecord, log zerolog.Logger) (*Result, error) {
	if err := validate(records); err != nil {
		return nil, err
	}

	var financeGroup, otherGroup []RawRecord
	for _, rec := range records {
		if rec.Classify() == ClassFinanceDirectorate {
			financeGroup = append(financeGroup, rec)
		} else {
			otherGroup = append(otherGroup, rec)
		}
	}

	debitAmount := decimal.Zero
	for _, rec := range otherGroup {
		debitAmount = debitAmount.Add(rec.CreditAmount)
	}

	res := &Result{
		CreditLines: otherGroup,
		FullRecords: records,
	}

	if len(financeGroup) > 0 {
		template := financeGroup[0]
		res.FinanceDebit = &FinanceDebit{
			BranchCode:        template.BranchCode,
			CostCenterReduced: template.CostCenterReduced,
			CostCenterLabel:   template.CostCenter,
			Amount:            debitAmount,
		}
		log.Info().
			Int("finance_records", len(financeGroup)).
			Int("credit_lines", len(otherGroup)).
			Str("debit_amount", debitAmount.StringFixed(2)).
			Msg("Reclassification computed")
	} else {
		log.Warn().
			Int("credit_lines", len(otherGroup)).
			Msg("Finance directorate not present in input; debit posting will be skipped")
	}

	return res, nil
}

func validate(records []RawRecord) error {
	for i, rec := range records {
		switch {
		case rec.CostCenter == "":
			return &TransformError{Index: i, Field: "CENTROCUSTO", Reason: "missing"}
		case rec.BranchCode <= 0:
			return &TransformError{Index: i, Field: "FIL_IN_CODIGO", Reason: "missing or non-positive"}
		case rec.CostCenterReduced <= 0:
			return &TransformError{Index: i, Field: "CUS_IN_REDUZIDO", Reason: "missing or non-positive"}
		}
	}
	return nil
}
