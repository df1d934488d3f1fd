// Package roster parses student roster uploads. A roster has four columns:
// phone, name, school, grade, with an optional header row.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"classtrade/internal/game"

	"github.com/xuri/excelize/v2"
)

// MaxRows bounds a single upload.
const MaxRows = 1000

var (
	ErrEmpty    = errors.New("roster has no student rows")
	ErrTooLarge = fmt.Errorf("roster has more than %d rows", MaxRows)
	ErrNoSheet  = errors.New("workbook has no sheets")
)

type Row struct {
	Line   int
	Phone  string
	Name   string
	School string
	Grade  int
}

type RowError struct {
	Line    int
	Message string
}

type Result struct {
	Rows   []Row
	Errors []RowError
}

var (
	phoneCellRE = regexp.MustCompile(`^[0-9\-\s.+()]+$`)
	gradeRE     = regexp.MustCompile(`^(\d{1,2})\s*(학년)?$`)
)

// ParseCSV reads a comma separated roster. A UTF-8 byte order mark is ignored.
func ParseCSV(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var records [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
		if len(records) > MaxRows+1 {
			return Result{}, ErrTooLarge
		}
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return parseRecords(records, lines)
}

// ParseXLSX reads the first sheet of an Excel workbook.
func ParseXLSX(r io.Reader) (Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, ErrNoSheet
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(records) > MaxRows+1 {
		return Result{}, ErrTooLarge
	}
	lines := make([]int, len(records))
	for i := range records {
		lines[i] = i + 1
	}
	return parseRecords(records, lines)
}

// parseRecords validates records; lines holds each record's line in the file.
func parseRecords(records [][]string, lines []int) (Result, error) {
	var out Result
	first := true
	for i, rec := range records {
		line := lines[i]
		if blank(rec) {
			continue
		}
		// only the first non-blank record may be a header
		if first {
			first = false
			if IsHeader(rec) {
				continue
			}
		}
		row, err := ParseRow(line, rec)
		if err != nil {
			out.Errors = append(out.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	if len(out.Rows) == 0 && len(out.Errors) == 0 {
		return out, ErrEmpty
	}
	if len(out.Rows)+len(out.Errors) > MaxRows {
		return Result{}, ErrTooLarge
	}
	return out, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")) != "" {
			return false
		}
	}
	return true
}

// IsHeader reports whether the first cell looks like a label rather than a
// phone number.
func IsHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	first := strings.TrimSpace(rec[0])
	return first != "" && !phoneCellRE.MatchString(first)
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

// ParseRow validates one record.
func ParseRow(line int, rec []string) (Row, error) {
	row := Row{Line: line}

	phone := cell(rec, 0)
	// Spreadsheets storing the phone as a number drop the leading zero.
	if digits := strings.Map(keepDigit, phone); strings.HasPrefix(digits, "1") && (len(digits) == 9 || len(digits) == 10) {
		phone = "0" + digits
	}
	normalized, err := game.NormalizePhone(phone)
	if err != nil {
		return row, fmt.Errorf("phone %q: %w", cell(rec, 0), err)
	}
	row.Phone = normalized

	row.Name = cell(rec, 1)
	if row.Name == "" {
		return row, errors.New("name is required")
	}
	row.School = cell(rec, 2)

	grade := cell(rec, 3)
	m := gradeRE.FindStringSubmatch(grade)
	if m == nil {
		return row, fmt.Errorf("grade %q must be a number from 1 to 12", grade)
	}
	row.Grade, _ = strconv.Atoi(m[1])
	if row.Grade < 1 || row.Grade > 12 {
		return row, fmt.Errorf("grade %q must be a number from 1 to 12", grade)
	}
	return row, nil
}

func keepDigit(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}
