package testutil

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Workbook returns an xlsx file with a dept,total header and rows data rows.
func Workbook(t testing.TB, rows int) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"dept", "total"}); err != nil {
		t.Fatalf("writing header: %v", err)
	}
	for i := 0; i < rows; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &[]any{"IT", i}); err != nil {
			t.Fatalf("writing row %d: %v", i, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("writing workbook: %v", err)
	}
	return bytes.Clone(buf.Bytes())
}
