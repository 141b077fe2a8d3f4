package metrics

import (
	"errors"

	"github.com/axpulse/axpulse/internal/domain/event"
)

// ErrInvalidWindow indicates a window whose From month is after its To month
// or whose metric names are unknown.
var ErrInvalidWindow = errors.New("invalid metrics window")

// Metric names a rankable quantity.
type Metric string

const (
	MetricProposals Metric = "proposals"
	MetricApprovals Metric = "approvals"
)

// Window selects the slice of history a computation covers. Zero-value
// fields mean unbounded: no From/To restricts months, and an empty AsOf
// reads the latest known state.
type Window struct {
	From event.MonthKey `json:"from,omitempty"`
	To   event.MonthKey `json:"to,omitempty"`
	// AsOf reconstructs what the store knew as of this YYYY-MM-DD snapshot
	// date, ignoring corrections from later snapshots.
	AsOf string `json:"as_of,omitempty"`
}

// KPIs are the headline dashboard numbers for a window.
type KPIs struct {
	TotalProjects  int `json:"total_projects"`
	ActiveProjects int `json:"active_projects"`
	TotalProposals int `json:"total_proposals"`
	TotalApprovals int `json:"total_approvals"`
	// ChampionParticipation is the share of champions with any activity in
	// the window; ApprovalConversion is approvals over proposals.
	ChampionParticipation float64 `json:"champion_participation"`
	ApprovalConversion    float64 `json:"approval_conversion"`
}

// ChampionRank is one row of the champion ranking.
type ChampionRank struct {
	Champion  string `json:"champion"`
	Proposals int    `json:"proposals"`
	Approvals int    `json:"approvals"`
}

// StrategySlice is one strategy's share of the portfolio.
type StrategySlice struct {
	Strategy       string `json:"strategy"`
	Projects       int    `json:"projects"`
	ActiveProjects int    `json:"active_projects"`
	Proposals      int    `json:"proposals"`
	Approvals      int    `json:"approvals"`
}

// Heatmap is the (champion, month) activity matrix. Cells holds raw
// proposal+approval sums; Intensity holds the same grid scaled to [0, 1]
// against the maximum cell. Presentation decides colors.
type Heatmap struct {
	Champions []string    `json:"champions"`
	Months    []string    `json:"months"`
	Cells     [][]int     `json:"cells"`
	Intensity [][]float64 `json:"intensity"`
}

// Trend carries per-month proposal/approval totals for the top line chart.
type Trend struct {
	Months    []string `json:"months"`
	Proposals []int    `json:"proposals"`
	Approvals []int    `json:"approvals"`
}

// Dashboard is the full payload handed to the presentation layer.
type Dashboard struct {
	Window       Window          `json:"window"`
	KPIs         KPIs            `json:"kpis"`
	Rankings     []ChampionRank  `json:"rankings"`
	Distribution []StrategySlice `json:"distribution"`
	Heatmap      Heatmap         `json:"heatmap"`
	Trend        Trend           `json:"trend"`
}
