package snapshot

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidFilename indicates the document name doesn't match
	// YYYY-MM-DD.xlsx.
	ErrInvalidFilename = errors.New("invalid snapshot filename")
	// ErrMissingMasterSheet indicates the workbook has no AX_Master sheet.
	ErrMissingMasterSheet = errors.New("missing AX_Master sheet")
	// ErrInvalidMasterRow indicates a master row with a missing required
	// field or a duplicated project id.
	ErrInvalidMasterRow = errors.New("invalid master row")
	// ErrOrphanMonthlyRow indicates a monthly row referencing a project id
	// absent from the master sheet of the same workbook.
	ErrOrphanMonthlyRow = errors.New("orphan monthly row")
	// ErrInvalidEventCount indicates a count cell that is negative or not an
	// integer.
	ErrInvalidEventCount = errors.New("invalid event count")
)

// MissingColumnsError reports required columns absent from a sheet header.
type MissingColumnsError struct {
	Sheet   string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("sheet %q: missing required columns: %s", e.Sheet, strings.Join(e.Columns, ", "))
}

// MasterRowError reports an invalid row in the master sheet.
type MasterRowError struct {
	Row    int
	Reason string
}

func (e *MasterRowError) Error() string {
	return fmt.Sprintf("sheet %q row %d: %s", MasterSheetName, e.Row, e.Reason)
}

func (e *MasterRowError) Unwrap() error { return ErrInvalidMasterRow }

// OrphanRowError reports a monthly row whose project id is not in the master
// sheet of the same workbook.
type OrphanRowError struct {
	Sheet     string
	Row       int
	ProjectID string
}

func (e *OrphanRowError) Error() string {
	return fmt.Sprintf("sheet %q row %d: project %q not present in %s", e.Sheet, e.Row, e.ProjectID, MasterSheetName)
}

func (e *OrphanRowError) Unwrap() error { return ErrOrphanMonthlyRow }

// EventCountError reports a count cell that failed validation.
type EventCountError struct {
	Sheet  string
	Row    int
	Column string
	Value  string
}

func (e *EventCountError) Error() string {
	return fmt.Sprintf("sheet %q row %d: column %q: %q is not a non-negative integer", e.Sheet, e.Row, e.Column, e.Value)
}

func (e *EventCountError) Unwrap() error { return ErrInvalidEventCount }
