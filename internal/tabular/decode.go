package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DecodeCSV reads a CSV upload into a Table.
// The delimiter is sniffed from the header line: French exports commonly use
// semicolons while the platform's own exports use commas. Ragged rows are
// tolerated; width differences are handled during extraction.
func DecodeCSV(r io.Reader) (Table, error) {
	br := bufio.NewReader(r)

	firstLine, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return Table{}, fmt.Errorf("reading upload: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(string(firstLine))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return Table{}, nil
	}

	return Table{Header: records[0], Rows: records[1:]}, nil
}

// sniffDelimiter picks the delimiter appearing most often in the first line.
func sniffDelimiter(line string) rune {
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	semis := strings.Count(line, ";")
	commas := strings.Count(line, ",")
	tabs := strings.Count(line, "\t")

	switch {
	case tabs > semis && tabs > commas:
		return '\t'
	case semis > commas:
		return ';'
	default:
		return ','
	}
}

// DecodeXLSX reads a spreadsheet upload into a Table.
// Only the first sheet is considered; cell values arrive already formatted
// as strings (numeric postal codes included).
func DecodeXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("opening spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return Table{}, nil
	}

	return Table{Header: rows[0], Rows: rows[1:]}, nil
}

// Decode dispatches on the uploaded filename's extension.
func Decode(filename string, r io.Reader) (Table, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".xlsx"), strings.HasSuffix(name, ".xlsm"):
		return DecodeXLSX(r)
	case strings.HasSuffix(name, ".csv"), strings.HasSuffix(name, ".txt"):
		return DecodeCSV(r)
	default:
		return Table{}, fmt.Errorf("unsupported file type: %s", filename)
	}
}
