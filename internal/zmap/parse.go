package zmap

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/ostrand/zmapd/internal/errors"
)

// FieldDelimiter separates values in structured per-field output. It
// matches the engine's csv output module and is part of the documented
// contract for record parsing.
const FieldDelimiter = ','

// ParseResultFile reads a scan output file and returns the discovered
// target identifiers, one per line. Blank lines are skipped; order is
// preserved exactly as emitted and duplicates are passed through, since
// they reflect repeated probes.
//
// A missing file is tolerated only when allowMissing is set: the engine
// may not create the file when nothing was found. Any other I/O failure
// is a *ParseError.
func ParseResultFile(path string, allowMissing bool) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return nil, nil
		}
		return nil, errors.NewParseError(path, "failed to read scan output", err)
	}
	return ParseLines(string(data)), nil
}

// ParseLines splits line-based engine output into items, trimming
// surrounding whitespace and dropping empty lines. Used for both scan
// output and introspection listings.
func ParseLines(output string) []string {
	var items []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	return items
}

// Record is one structured result row keyed by output field name.
type Record map[string]string

// ParseRecordsFile reads structured per-field output produced with an
// explicit output-field selection. Column order matches the requested
// fields. A leading header row repeating the field names is skipped.
func ParseRecordsFile(path string, fields []string, allowMissing bool) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return nil, nil
		}
		return nil, errors.NewParseError(path, "failed to read scan output", err)
	}
	defer f.Close()

	records, err := parseRecords(f, fields)
	if err != nil {
		return nil, errors.NewParseError(path, "malformed field output", err)
	}
	return records, nil
}

func parseRecords(r io.Reader, fields []string) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.Comma = FieldDelimiter
	reader.FieldsPerRecord = len(fields)

	var records []Record
	for i := 0; ; i++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if i == 0 && isHeader(row, fields) {
			continue
		}
		record := make(Record, len(fields))
		for j, field := range fields {
			record[field] = row[j]
		}
		records = append(records, record)
	}
	return records, nil
}

func isHeader(row, fields []string) bool {
	for i, field := range fields {
		if strings.TrimSpace(row[i]) != field {
			return false
		}
	}
	return true
}
