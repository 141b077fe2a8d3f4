// Package project models the portfolio projects tracked across snapshots.
package project

// Project is one portfolio project. ID is the stable spreadsheet project
// code: once created, identity never changes even when the mutable fields
// are edited.
type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Champion   string `json:"champion"`
	StrategyID string `json:"strategy_id"`
	Status     string `json:"status"`
	// CreatedSnapshot and UpdatedSnapshot are the YYYY-MM-DD dates of the
	// snapshots that created and last touched the project.
	CreatedSnapshot string `json:"created_snapshot"`
	UpdatedSnapshot string `json:"updated_snapshot"`
}
