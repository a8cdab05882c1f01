package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/ctpnav/reconciler/internal/domain"
)

// WritePDF renders a one-account NAV summary. Core PDF fonts carry no CJK
// glyphs, so the PDF uses English labels.
func WritePDF(w io.Writer, accountID string, rows []domain.Row, generated time.Time) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "NAV Summary")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Account: %s", accountID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generated.Format(time.RFC3339)))
	pdf.Ln(8)

	headers := []string{"Date", "Balance C/F", "Bank Transfer", "Real P/L", "Real Units", "Real NAV", "Instant Balance", "Instant NAV"}
	widths := []float64{24, 36, 32, 30, 36, 24, 36, 24}
	pdf.SetFont("Arial", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, r := range rows {
		date := r.DateLabel()
		if r.Total {
			date = "Total"
		}
		cells := []string{
			date,
			fmt.Sprintf("%.2f", r.BalanceCF),
			fmt.Sprintf("%.2f", r.BankTransfer),
			fmt.Sprintf("%.2f", r.RealPL),
			fmt.Sprintf("%.2f", r.Real.Units),
			fmt.Sprintf("%.4f", r.Real.NAV),
			fmt.Sprintf("%.2f", r.Instant.Balance),
			fmt.Sprintf("%.4f", r.Instant.NAV),
		}
		for i, c := range cells {
			align := "R"
			if i == 0 {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
