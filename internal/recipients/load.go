package recipients

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"github.com/xkilldash9x/courier-cli/api/schemas"
)

// List is the outcome of loading a recipient source.
type List struct {
	Source     string
	Rows       int
	Recipients []schemas.Recipient
}

// Report is the one-line load summary shown to the operator.
func (l List) Report() string {
	return fmt.Sprintf("%d rows -> %d valid numbers", l.Rows, len(l.Recipients))
}

// Load reads the first column of path. .xlsx and .xlsm files use the first sheet, .csv
// files the first field of each record, anything else one entry per line. Blank cells
// are not counted as rows.
func Load(fs afero.Fs, path string) (List, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	f, err := fs.Open(path)
	if err != nil {
		return List{}, fmt.Errorf("open recipients %s: %w", path, err)
	}
	defer f.Close()

	var raw []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		raw, err = readSpreadsheet(f)
	case ".csv":
		raw, err = readCSV(f)
	default:
		raw, err = readLines(f)
	}
	if err != nil {
		return List{}, fmt.Errorf("read recipients %s: %w", path, err)
	}
	return FromRaw(path, raw), nil
}

// FromRaw builds a List from entries that did not come from a file, such as --number flags.
func FromRaw(source string, raw []string) List {
	rows := 0
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			rows++
		}
	}
	return List{Source: source, Rows: rows, Recipients: Normalize(raw)}
}

func readSpreadsheet(r io.Reader) ([]string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return firstColumn(rows), nil
}

func readCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return firstColumn(records), nil
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

func firstColumn(rows [][]string) []string {
	var out []string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if v := strings.TrimSpace(row[0]); v != "" {
			out = append(out, v)
		}
	}
	return out
}
