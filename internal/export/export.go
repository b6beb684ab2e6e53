// Package export downloads query results as Excel workbooks.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/leapstack-labs/budgetquery/internal/backend"
)

// filenameLayout renders "Budget Query <DD>-<Mon>-<YY> <HH><MM>.xlsx".
const filenameLayout = "Budget Query 02-Jan-06 1504.xlsx"

// maxNameAttempts bounds the search for a free filename in Save.
const maxNameAttempts = 1000

// ErrEmptySQL is returned when there is no statement to export.
var ErrEmptySQL = errors.New("no SQL to export")

// Filename returns the workbook name for a download requested at t.
func Filename(t time.Time) string {
	return t.Format(filenameLayout)
}

// Fetcher retrieves the workbook for a statement.
type Fetcher interface {
	Download(ctx context.Context, req backend.DownloadRequest) ([]byte, error)
}

// File is a downloaded workbook.
type File struct {
	Filename string
	Data     []byte
	// Sheets and Rows describe the first worksheet; Rows excludes the header.
	Sheets int
	Rows   int
}

// Fetch downloads the workbook for sql, naming it after now.
func Fetch(ctx context.Context, f Fetcher, sql string, now time.Time) (*File, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, ErrEmptySQL
	}

	name := Filename(now)
	data, err := f.Download(ctx, backend.DownloadRequest{
		TrueSQL:  sql,
		SQL:      sql,
		Filename: name,
	})
	if err != nil {
		return nil, err
	}

	file := &File{Filename: name, Data: data}
	if err := file.inspect(); err != nil {
		return nil, err
	}
	return file, nil
}

// inspect opens the payload as a workbook and counts its data rows.
func (f *File) inspect() error {
	wb, err := excelize.OpenReader(bytes.NewReader(f.Data))
	if err != nil {
		return fmt.Errorf("response is not a workbook: %w", err)
	}
	defer func() { _ = wb.Close() }()

	sheets := wb.GetSheetList()
	f.Sheets = len(sheets)
	if len(sheets) == 0 {
		return nil
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) > 1 {
		f.Rows = len(rows) - 1
	}
	return nil
}

// Save writes the workbook into dir, creating dir if needed. An existing
// file is never overwritten; " (1)", " (2)", ... is appended instead.
// It returns the path written.
func (f *File) Save(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	ext := filepath.Ext(f.Filename)
	stem := strings.TrimSuffix(f.Filename, ext)

	for i := 0; i < maxNameAttempts; i++ {
		name := f.Filename
		if i > 0 {
			name = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, name)

		out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		if _, err := out.Write(f.Data); err != nil {
			_ = out.Close()
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := out.Close(); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free filename for %s in %s", f.Filename, dir)
}
