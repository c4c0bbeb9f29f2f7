package importer

import (
	"bytes"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/core/common/validation"
)

const (
	DefaultDateField        = "date"
	DefaultAmountField      = "amount"
	DefaultDescriptionField = "description"
	DefaultCategoryField    = "category"

	categoryMaxLength = 100
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// dateLayouts are tried in order; ISO first.
var dateLayouts = []string{"2006-01-02", "02.01.2006", "2006/01/02", "02/01/2006"}

// amountLimit matches NUMERIC(14,2).
var amountLimit = decimal.New(1, 12)

// Mapping names the CSV columns holding each transaction field. Matching is
// trimmed and case-insensitive.
type Mapping struct {
	DateField        string
	AmountField      string
	DescriptionField string
	CategoryField    string
}

// WithDefaults fills blank fields with the default column names.
func (m Mapping) WithDefaults() Mapping {
	if strings.TrimSpace(m.DateField) == "" {
		m.DateField = DefaultDateField
	}
	if strings.TrimSpace(m.AmountField) == "" {
		m.AmountField = DefaultAmountField
	}
	if strings.TrimSpace(m.DescriptionField) == "" {
		m.DescriptionField = DefaultDescriptionField
	}
	if strings.TrimSpace(m.CategoryField) == "" {
		m.CategoryField = DefaultCategoryField
	}
	return m
}

// Row is one successfully parsed record. Line is the 1-based record number,
// the header being line 1.
type Row struct {
	Line        int
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Category    string
}

type ParseResult struct {
	Rows    []Row
	Invalid int
	Errors  []string
}

func (p *ParseResult) reject(line int, maxErrors int, format string, args ...interface{}) {
	p.Invalid++
	if len(p.Errors) < maxErrors {
		p.Errors = append(p.Errors, fmt.Sprintf("row %d: ", line)+fmt.Sprintf(format, args...))
	}
}

type columns struct {
	date, amount, description int
	category                  int // -1 when the file has no category column
}

// Parse reads a whole CSV upload. File-level problems (encoding, header) are
// returned as a validation error; bad records are counted and described in
// the result instead.
func Parse(r io.Reader, mapping Mapping, maxErrors int) (*ParseResult, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewValidationError("could not read the uploaded file", errors.ErrCodeInvalidUpload).WithCause(err)
	}
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return nil, errors.NewValidationError("the file is not valid UTF-8", errors.ErrCodeInvalidUpload)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, errors.NewValidationError("the file is empty", errors.ErrCodeInvalidUpload)
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = detectDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.NewValidationError("could not read the CSV header", errors.ErrCodeInvalidUpload).WithCause(err)
	}

	cols, err := resolveColumns(header, mapping.WithDefaults())
	if err != nil {
		return nil, err
	}

	result := &ParseResult{Rows: make([]Row, 0), Errors: make([]string, 0)}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if stderrors.As(err, &parseErr) {
				result.reject(line, maxErrors, "malformed CSV record")
				continue
			}
			return nil, errors.NewValidationError("could not read the uploaded file", errors.ErrCodeInvalidUpload).WithCause(err)
		}
		if isBlank(record) {
			continue
		}

		row, problem := parseRecord(record, cols)
		if problem != "" {
			result.reject(line, maxErrors, "%s", problem)
			continue
		}
		row.Line = line
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

// detectDelimiter picks ';' when the header line holds more semicolons than
// commas.
func detectDelimiter(content []byte) rune {
	first := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		first = content[:i]
	}
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

func resolveColumns(header []string, m Mapping) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}
	lookup := func(name string) int {
		if i, ok := index[strings.ToLower(strings.TrimSpace(name))]; ok {
			return i
		}
		return -1
	}

	cols := columns{
		date:        lookup(m.DateField),
		amount:      lookup(m.AmountField),
		description: lookup(m.DescriptionField),
		category:    lookup(m.CategoryField),
	}

	var missing []string
	if cols.date < 0 {
		missing = append(missing, m.DateField)
	}
	if cols.amount < 0 {
		missing = append(missing, m.AmountField)
	}
	if cols.description < 0 {
		missing = append(missing, m.DescriptionField)
	}
	if len(missing) > 0 {
		return cols, errors.NewValidationError(
			fmt.Sprintf("the CSV header lacks the column(s): %s", strings.Join(missing, ", ")),
			errors.ErrCodeInvalidUpload)
	}
	return cols, nil
}

func parseRecord(record []string, cols columns) (Row, string) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var row Row

	rawDate := field(cols.date)
	if rawDate == "" {
		return row, "date is missing"
	}
	date, ok := ParseDate(rawDate)
	if !ok {
		return row, fmt.Sprintf("invalid date %q", rawDate)
	}
	row.Date = date

	rawAmount := field(cols.amount)
	if rawAmount == "" {
		return row, "amount is missing"
	}
	amount, ok := ParseAmount(rawAmount)
	if !ok {
		return row, fmt.Sprintf("invalid amount %q", rawAmount)
	}
	row.Amount = amount

	row.Description = field(cols.description)
	if row.Description == "" {
		return row, "description is missing"
	}
	if utf8.RuneCountInString(row.Description) > validation.DescriptionMax {
		return row, fmt.Sprintf("description exceeds %d characters", validation.DescriptionMax)
	}

	row.Category = field(cols.category)
	if utf8.RuneCountInString(row.Category) > categoryMaxLength {
		return row, fmt.Sprintf("category exceeds %d characters", categoryMaxLength)
	}

	return row, ""
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// ParseDate accepts ISO, German and slash separated calendar dates.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseAmount understands bank export notations such as "-12,50", "1.234,56",
// "1,234.56", "1'234.50", "(12.50)", "12,50-", "EUR -3.00" or "12,50 €".
// A currency code or symbol may lead or trail the number but never sit inside
// it. Amounts with non-zero digits beyond cents are rejected, like the JSON
// API does.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	runes := []rune(s)
	signs := 0
	lo, hi := 0, len(runes)
	for lo < hi && !isAmountDigit(runes[lo]) {
		if !skipAmountAffix(runes[lo], &signs) {
			return decimal.Zero, false
		}
		lo++
	}
	for hi > lo && !isAmountDigit(runes[hi-1]) {
		if !skipAmountAffix(runes[hi-1], &signs) {
			return decimal.Zero, false
		}
		hi--
	}
	if signs > 1 || lo == hi {
		return decimal.Zero, false
	}
	if hasMinus(runes[:lo], runes[hi:]) {
		negative = !negative
	}

	var b strings.Builder
	for _, r := range runes[lo:hi] {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '\'', r == ' ', r == '\u00a0', r == '\u202f':
			// digit grouping
		default:
			return decimal.Zero, false
		}
	}

	d, err := decimal.NewFromString(normalizeSeparators(b.String()))
	if err != nil || !d.Equal(d.Round(2)) {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	if d.Abs().GreaterThanOrEqual(amountLimit) {
		return decimal.Zero, false
	}
	return d, true
}

func isAmountDigit(r rune) bool {
	return r >= '0' && r <= '9' || r == '.' || r == ','
}

// skipAmountAffix accepts the runes allowed around the number: one sign and a
// currency code or symbol.
func skipAmountAffix(r rune, signs *int) bool {
	switch {
	case r == '-' || r == '−' || r == '+':
		*signs++
		return true
	case unicode.IsSpace(r), unicode.IsLetter(r), unicode.Is(unicode.Sc, r):
		return true
	default:
		return false
	}
}

func hasMinus(affixes ...[]rune) bool {
	for _, a := range affixes {
		for _, r := range a {
			if r == '-' || r == '−' {
				return true
			}
		}
	}
	return false
}

// normalizeSeparators rewrites the number to use '.' as the only decimal
// separator. When both separators occur the last one is the decimal point; a
// separator that occurs more than once is a thousands separator.
func normalizeSeparators(s string) string {
	dot := strings.LastIndexByte(s, '.')
	comma := strings.LastIndexByte(s, ',')

	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case dot >= 0 && strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}
