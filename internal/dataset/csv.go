package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// CSVSource reads records from a CSV file with a header row.
//
// Header names are matched case-insensitively after trimming; unknown columns are ignored.
// Every column in Columns must be present.
type CSVSource struct {
	Path string
	CSVOptions
}

// CSVOptions control how a CSV file is decoded.
type CSVOptions struct {
	// Encoding is a WHATWG label such as "windows-1252" or "utf-16le". Empty means UTF-8.
	Encoding string
	// Delimiter defaults to a comma.
	Delimiter rune
}

// CSVOption sets a CSVOptions field.
type CSVOption func(*CSVOptions)

// WithEncoding transcodes the file from the named character set.
func WithEncoding(name string) CSVOption {
	return func(o *CSVOptions) { o.Encoding = name }
}

// WithDelimiter sets the field separator.
func WithDelimiter(r rune) CSVOption {
	return func(o *CSVOptions) { o.Delimiter = r }
}

// NewCSVSource creates a CSV source for path.
func NewCSVSource(path string, opts ...CSVOption) *CSVSource {
	s := &CSVSource{Path: path}
	for _, opt := range opts {
		opt(&s.CSVOptions)
	}
	return s
}

// Name returns the source identifier.
func (s *CSVSource) Name() string {
	return "csv:" + s.Path
}

// Read opens the file and parses every row.
func (s *CSVSource) Read(ctx context.Context) ([]Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return ReadCSVWith(ctx, f, s.CSVOptions)
}

// ReadCSV parses UTF-8, comma separated data from r.
func ReadCSV(ctx context.Context, r io.Reader) ([]Record, error) {
	return ReadCSVWith(ctx, r, CSVOptions{})
}

// ReadCSVWith parses CSV data from r using opts.
func ReadCSVWith(ctx context.Context, r io.Reader, opts CSVOptions) ([]Record, error) {
	if !isUTF8(opts.Encoding) {
		enc, err := htmlindex.Get(opts.Encoding)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, opts.Encoding)
		}
		r = transform.NewReader(r, enc.NewDecoder())
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv header: empty input")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []Record
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		date, err := ParseDate(cell(row, "date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		state, _ := parseLabel(cell(row, "state"))
		district, hasDistrict := parseLabel(cell(row, "district"))

		records = append(records, Record{
			Date:           date,
			State:          state,
			District:       district,
			HasDistrict:    hasDistrict,
			NewEnrolments:  parseNumber(cell(row, "new_enrolments")),
			UpdateRequests: parseNumber(cell(row, "update_requests")),
			Failures:       parseNumber(cell(row, "failures")),
			Operators:      parseNumber(cell(row, "operators")),
			ServiceHours:   parseNumber(cell(row, "service_hours")),
		})
	}
	return records, nil
}

func isUTF8(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// ValidateEncoding reports whether name is a character set ReadCSVWith can decode.
func ValidateEncoding(name string) error {
	if isUTF8(name) {
		return nil
	}
	if _, err := htmlindex.Get(name); err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
	}
	return nil
}
