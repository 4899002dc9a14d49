package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"freight/internal/domain"
	"freight/internal/service"
)

func TestWriteStatement(t *testing.T) {
	t.Parallel()

	d := decimal.RequireFromString
	created := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	st := &service.Statement{
		Settlement: &domain.Settlement{
			ID: "S1", SettlementNumber: "STL-0042", DriverID: "D1",
			PeriodStart: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			PeriodEnd:   time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
			Status:      domain.SettlementStatusPending,
		},
		Additions: []*domain.LedgerEntry{
			{Description: "Detention", DeductionType: domain.DeductionTypeOther, Amount: d("100"), CreatedAt: created},
		},
		Deductions: []*domain.LedgerEntry{
			{Description: "Insurance", DeductionType: domain.DeductionTypeInsurance, Amount: d("50"), CreatedAt: created},
			{Description: "Escrow", DeductionType: domain.DeductionTypeEscrow, Amount: d("75"), CreatedAt: created},
		},
		Advances: []*domain.Advance{{Notes: "Fuel stop", Amount: d("200"), CreatedAt: created}},
		Totals: service.Totals{
			GrossPay: d("2000"), Additions: d("100"), Deductions: d("125"),
			Advances: d("200"), NetPay: d("1775"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStatement(&buf, st))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, linesSheet}, f.GetSheetList())

	number, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "STL-0042", number)

	period, err := f.GetCellValue(summarySheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02 to 2026-03-08", period)

	net, err := f.GetCellValue(summarySheet, "B10")
	require.NoError(t, err)
	assert.Equal(t, "1775", net)

	rows, err := f.GetRows(linesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5, "header plus four lines")
	assert.Equal(t, lineHeaders, rows[0])
	assert.Equal(t, "Addition", rows[1][0])
	assert.Equal(t, "INSURANCE", rows[2][1])
	assert.Equal(t, "-75", rows[3][3])
	assert.Equal(t, "Advance", rows[4][0])
}
