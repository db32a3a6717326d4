package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/osacfin/reclass-cc14/internal/reclass"
)

// SheetName is the single worksheet holding the exported record set.
const SheetName = "Lancamentos"

// Filename returns the report name for a period ending on periodEnd:
// "Reclassificação cc14 YYYYMMDD.xlsx".
func Filename(periodEnd time.Time) string {
	return fmt.Sprintf("Reclassificação cc14 %s.xlsx", periodEnd.Format("20060102"))
}

// Generate renders the full record set into an in-memory workbook. Every
// record keeps its credit amount except the finance directorate, whose row
// moves the positive-credit total into the debit column and leaves the
// credit cell empty. The account column is dropped.
func Generate(records []reclass.RawRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("Generate: renaming sheet: %w", err)
	}

	headers := []string{"FIL_IN_CODIGO", "CENTROCUSTO", "CUS_IN_REDUZIDO", "VALORCREDITO", "VALORDEBITO"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("Generate: writing header: %w", err)
		}
	}

	debitTotal := positiveCreditSum(records)

	for i, rec := range records {
		row := i + 2
		values := []any{rec.BranchCode, rec.CostCenter, rec.CostCenterReduced, nil, nil}
		if rec.Classify() == reclass.ClassFinanceDirectorate {
			values[4], _ = debitTotal.Float64()
		} else {
			values[3], _ = rec.CreditAmount.Float64()
		}

		for col, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, fmt.Errorf("Generate: writing row %d: %w", row, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("Generate: serializing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// positiveCreditSum totals the positive credit amounts across all records;
// this is the figure shown in the finance directorate's debit column.
func positiveCreditSum(records []reclass.RawRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, rec := range records {
		if rec.CreditAmount.IsPositive() {
			sum = sum.Add(rec.CreditAmount)
		}
	}
	return sum
}
