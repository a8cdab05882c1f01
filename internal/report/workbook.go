package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ctpnav/reconciler/internal/domain"
)

const (
	SummarySheet  = "结算汇总"
	TransferSheet = "银期转账"
)

var transferColumns = []string{"日期", "入金", "出金", "说明"}

// WriteWorkbook writes rows and bank transfers as an XLSX workbook.
func WriteWorkbook(w io.Writer, rows []domain.Row, transfers []domain.CashFlowEvent) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(TransferSheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}

	if err := f.SetSheetRow(SummarySheet, "A1", &domain.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		cells := []any{r.AccountID, r.DateLabel()}
		for _, v := range r.Values() {
			cells = append(cells, v)
		}
		if err := f.SetSheetRow(SummarySheet, cellName(1, i+2), &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := f.SetPanes(SummarySheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      2,
		YSplit:      1,
		TopLeftCell: "C2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}

	if err := f.SetSheetRow(TransferSheet, "A1", &transferColumns); err != nil {
		return fmt.Errorf("write transfer header: %w", err)
	}
	for i, e := range transfers {
		cells := []any{e.Date.Format(domain.DateLayout), e.Deposit, e.Withdrawal, e.Comment}
		if err := f.SetSheetRow(TransferSheet, cellName(1, i+2), &cells); err != nil {
			return fmt.Errorf("write transfer %d: %w", i, err)
		}
	}

	return f.Write(w)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
