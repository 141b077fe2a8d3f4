// Package snapshot interprets one workbook into typed raw rows and records
// the ingestion ledger entry for each processed file. Parsing is pure: no
// entity is created here, and a failed parse can simply be retried with a
// corrected file.
package snapshot

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/axpulse/axpulse/internal/domain/event"
	"github.com/axpulse/axpulse/internal/workbook"
)

// MasterSheetName is the sheet listing the project roster.
const MasterSheetName = "AX_Master"

// Master sheet columns.
const (
	ColProjectID = "Project ID"
	ColName      = "Name"
	ColChampion  = "Champion"
	ColStrategy  = "Strategy"
	ColStatus    = "Status"
)

// Monthly sheet columns.
const (
	ColProposals = "Proposals"
	ColApprovals = "Approvals"
)

const dateLayout = "2006-01-02"

var filenamePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\.xlsx$`)

// Snapshot is the append-only record of one ingested file. Created once at
// ingestion, never updated or deleted.
type Snapshot struct {
	ID             string    `json:"id"`
	Date           string    `json:"date"`
	SourceFilename string    `json:"source_filename"`
	IngestedAt     time.Time `json:"ingested_at"`
	RowsProcessed  int       `json:"rows_processed"`
	RowsRejected   int       `json:"rows_rejected"`
}

// MasterRow is one validated row of the master sheet.
type MasterRow struct {
	ProjectID string
	Name      string
	Champion  string
	Strategy  string
	Status    string
}

// MonthlyRow is one validated row of a monthly sheet.
type MonthlyRow struct {
	ProjectID string
	Proposals int
	Approvals int
}

// ParseResult is the in-memory outcome of parsing one workbook.
type ParseResult struct {
	Date     string
	Projects []MasterRow
	// Months maps each month key to its rows. MonthKeys lists the keys in
	// chronological order for deterministic iteration.
	Months    map[event.MonthKey][]MonthlyRow
	MonthKeys []event.MonthKey
	// Warnings lists sheets ignored because their name is neither the
	// master sheet nor a YYYY-MM key.
	Warnings []string
}

// RowCount returns the number of data rows the result carries.
func (r *ParseResult) RowCount() int {
	n := len(r.Projects)
	for _, rows := range r.Months {
		n += len(rows)
	}
	return n
}

// DateFromFilename extracts and validates the snapshot date from a filename
// of the form YYYY-MM-DD.xlsx.
func DateFromFilename(name string) (string, error) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", fmt.Errorf("%w: %q must match YYYY-MM-DD.xlsx", ErrInvalidFilename, name)
	}
	if _, err := time.Parse(dateLayout, m[1]); err != nil {
		return "", fmt.Errorf("%w: %q is not a calendar date", ErrInvalidFilename, name)
	}
	return m[1], nil
}

// ParseDate validates a YYYY-MM-DD snapshot date string.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil || t.Format(dateLayout) != s {
		return "", fmt.Errorf("invalid snapshot date %q", s)
	}
	return s, nil
}

// Parse interprets the workbook as a snapshot dated date. Any invalid row
// fails the whole parse; there is no partial result.
func Parse(wb *workbook.Workbook, date string) (*ParseResult, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}

	master := wb.Sheet(MasterSheetName)
	if master == nil {
		return nil, ErrMissingMasterSheet
	}
	if missing := master.MissingColumns(ColProjectID, ColName, ColChampion, ColStrategy, ColStatus); len(missing) > 0 {
		return nil, &MissingColumnsError{Sheet: MasterSheetName, Columns: missing}
	}

	result := &ParseResult{
		Date:   date,
		Months: make(map[event.MonthKey][]MonthlyRow),
	}

	known := make(map[string]bool)
	for _, row := range master.Rows {
		if row.Empty() {
			continue
		}
		rec := MasterRow{
			ProjectID: row.Get(ColProjectID),
			Name:      row.Get(ColName),
			Champion:  row.Get(ColChampion),
			Strategy:  row.Get(ColStrategy),
			Status:    row.Get(ColStatus),
		}
		if reason := rec.validate(); reason != "" {
			return nil, &MasterRowError{Row: row.Index, Reason: reason}
		}
		if known[rec.ProjectID] {
			return nil, &MasterRowError{Row: row.Index, Reason: fmt.Sprintf("duplicate project id %q", rec.ProjectID)}
		}
		known[rec.ProjectID] = true
		result.Projects = append(result.Projects, rec)
	}

	for _, name := range wb.SheetNames() {
		if name == MasterSheetName {
			continue
		}
		key, err := event.ParseMonthKey(name)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("sheet %q ignored: not a YYYY-MM month sheet", name))
			continue
		}
		rows, err := parseMonthlySheet(wb.Sheet(name), known)
		if err != nil {
			return nil, err
		}
		result.Months[key] = rows
		result.MonthKeys = append(result.MonthKeys, key)
	}
	sort.Slice(result.MonthKeys, func(i, j int) bool {
		return result.MonthKeys[i].Before(result.MonthKeys[j])
	})

	return result, nil
}

func (r MasterRow) validate() string {
	switch {
	case r.ProjectID == "":
		return "missing project id"
	case r.Name == "":
		return "missing name"
	case r.Champion == "":
		return "missing champion"
	case r.Strategy == "":
		return "missing strategy"
	case r.Status == "":
		return "missing status"
	}
	return ""
}

func parseMonthlySheet(sheet *workbook.Sheet, known map[string]bool) ([]MonthlyRow, error) {
	if missing := sheet.MissingColumns(ColProjectID, ColProposals, ColApprovals); len(missing) > 0 {
		return nil, &MissingColumnsError{Sheet: sheet.Name, Columns: missing}
	}

	var rows []MonthlyRow
	for _, row := range sheet.Rows {
		if row.Empty() {
			continue
		}
		projectID := row.Get(ColProjectID)
		if !known[projectID] {
			return nil, &OrphanRowError{Sheet: sheet.Name, Row: row.Index, ProjectID: projectID}
		}
		proposals, err := parseCount(sheet.Name, row, ColProposals)
		if err != nil {
			return nil, err
		}
		approvals, err := parseCount(sheet.Name, row, ColApprovals)
		if err != nil {
			return nil, err
		}
		rows = append(rows, MonthlyRow{
			ProjectID: projectID,
			Proposals: proposals,
			Approvals: approvals,
		})
	}
	return rows, nil
}

// parseCount coerces a count cell to a non-negative integer. An empty cell
// counts as zero; anything negative or non-numeric fails the snapshot rather
// than being silently clamped.
func parseCount(sheetName string, row workbook.Row, column string) (int, error) {
	raw := row.Get(column)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &EventCountError{Sheet: sheetName, Row: row.Index, Column: column, Value: raw}
	}
	return n, nil
}
