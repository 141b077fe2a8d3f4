// Package metrics computes the dashboard aggregates from the canonical
// store. Every computation is a pure read: identical store state and window
// produce identical results.
package metrics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/axpulse/axpulse/internal/domain/event"
	"github.com/axpulse/axpulse/internal/domain/project"
	"github.com/axpulse/axpulse/internal/domain/strategy"
	"github.com/axpulse/axpulse/internal/repository"
)

// Config carries the dashboard knobs: which statuses count as active and
// which metrics order the champion ranking.
type Config struct {
	ActiveStatuses   []string
	RankingPrimary   Metric
	RankingSecondary Metric
}

// DefaultConfig returns the stock dashboard configuration.
func DefaultConfig() Config {
	return Config{
		ActiveStatuses:   []string{"approved", "in_progress"},
		RankingPrimary:   MetricProposals,
		RankingSecondary: MetricApprovals,
	}
}

// Engine computes dashboard aggregates. It has no write side effects; all
// reads of one computation share a single store transaction so the dashboard
// reflects one consistent state even while ingestions commit concurrently.
type Engine struct {
	store  repository.Store
	cfg    Config
	active map[string]bool
}

// NewEngine creates an engine over the given store handle.
func NewEngine(store repository.Store, cfg Config) (*Engine, error) {
	if cfg.RankingPrimary == "" {
		cfg.RankingPrimary = MetricProposals
	}
	if cfg.RankingSecondary == "" {
		cfg.RankingSecondary = MetricApprovals
	}
	for _, m := range []Metric{cfg.RankingPrimary, cfg.RankingSecondary} {
		if m != MetricProposals && m != MetricApprovals {
			return nil, fmt.Errorf("%w: unknown ranking metric %q", ErrInvalidWindow, m)
		}
	}

	active := make(map[string]bool, len(cfg.ActiveStatuses))
	for _, status := range cfg.ActiveStatuses {
		active[strings.ToLower(strings.TrimSpace(status))] = true
	}
	return &Engine{store: store, cfg: cfg, active: active}, nil
}

// tally accumulates proposal/approval sums for one grouping key.
type tally struct {
	proposals int
	approvals int
}

func (t *tally) add(kind event.Kind, count int) {
	switch kind {
	case event.KindProposal:
		t.proposals += count
	case event.KindApproval:
		t.approvals += count
	}
}

// Compute builds the full dashboard payload for a window.
func (e *Engine) Compute(ctx context.Context, w Window) (*Dashboard, error) {
	if w.From != "" && w.To != "" && w.To.Before(w.From) {
		return nil, fmt.Errorf("%w: from %s is after to %s", ErrInvalidWindow, w.From, w.To)
	}

	var (
		projects   []project.Project
		strategies []strategy.Strategy
		events     []event.MonthlyEvent
	)
	err := e.store.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		if projects, err = repos.Projects().List(ctx); err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}
		if strategies, err = repos.Strategies().List(ctx); err != nil {
			return fmt.Errorf("listing strategies: %w", err)
		}
		events, err = repos.Events().ListCurrent(ctx, repository.ListEventsOptions{
			From: w.From,
			To:   w.To,
			AsOf: w.AsOf,
		})
		if err != nil {
			return fmt.Errorf("listing events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*project.Project, len(projects))
	for i := range projects {
		byID[projects[i].ID] = &projects[i]
	}

	dash := &Dashboard{Window: w}
	dash.KPIs = e.computeKPIs(projects, events, byID)
	dash.Rankings = e.computeRankings(projects, events, byID)
	dash.Distribution = e.computeDistribution(projects, strategies, events, byID)
	dash.Heatmap = computeHeatmap(projects, events, byID)
	dash.Trend = computeTrend(events)
	return dash, nil
}

func (e *Engine) isActive(status string) bool {
	return e.active[strings.ToLower(strings.TrimSpace(status))]
}

func (e *Engine) computeKPIs(projects []project.Project, events []event.MonthlyEvent, byID map[string]*project.Project) KPIs {
	var kpis KPIs
	kpis.TotalProjects = len(projects)

	champions := make(map[string]bool, len(projects))
	for _, proj := range projects {
		champions[proj.Champion] = true
		if e.isActive(proj.Status) {
			kpis.ActiveProjects++
		}
	}

	activeChampions := make(map[string]bool)
	for _, evt := range events {
		switch evt.Kind {
		case event.KindProposal:
			kpis.TotalProposals += evt.Count
		case event.KindApproval:
			kpis.TotalApprovals += evt.Count
		}
		if evt.Count > 0 {
			if proj, ok := byID[evt.ProjectID]; ok {
				activeChampions[proj.Champion] = true
			}
		}
	}

	if len(champions) > 0 {
		kpis.ChampionParticipation = round2(float64(len(activeChampions)) / float64(len(champions)))
	}
	if kpis.TotalProposals > 0 {
		kpis.ApprovalConversion = round2(float64(kpis.TotalApprovals) / float64(kpis.TotalProposals))
	}
	return kpis
}

// computeRankings sums per-champion activity and orders by the configured
// primary metric, then the secondary metric, then champion name. The total
// order is deterministic so dashboard output is reproducible.
func (e *Engine) computeRankings(projects []project.Project, events []event.MonthlyEvent, byID map[string]*project.Project) []ChampionRank {
	tallies := make(map[string]*tally)
	for _, proj := range projects {
		if _, ok := tallies[proj.Champion]; !ok {
			tallies[proj.Champion] = &tally{}
		}
	}
	for _, evt := range events {
		proj, ok := byID[evt.ProjectID]
		if !ok {
			continue
		}
		tallies[proj.Champion].add(evt.Kind, evt.Count)
	}

	ranks := make([]ChampionRank, 0, len(tallies))
	for champion, t := range tallies {
		ranks = append(ranks, ChampionRank{
			Champion:  champion,
			Proposals: t.proposals,
			Approvals: t.approvals,
		})
	}
	sort.Slice(ranks, func(i, j int) bool {
		pi, pj := metricValue(ranks[i], e.cfg.RankingPrimary), metricValue(ranks[j], e.cfg.RankingPrimary)
		if pi != pj {
			return pi > pj
		}
		si, sj := metricValue(ranks[i], e.cfg.RankingSecondary), metricValue(ranks[j], e.cfg.RankingSecondary)
		if si != sj {
			return si > sj
		}
		return ranks[i].Champion < ranks[j].Champion
	})
	return ranks
}

func metricValue(r ChampionRank, m Metric) int {
	if m == MetricApprovals {
		return r.Approvals
	}
	return r.Proposals
}

// computeDistribution groups projects and event sums by strategy. Strategies
// with no projects are included with zero counts so charts stay stable
// across snapshots.
func (e *Engine) computeDistribution(projects []project.Project, strategies []strategy.Strategy, events []event.MonthlyEvent, byID map[string]*project.Project) []StrategySlice {
	names := make(map[string]string, len(strategies)) // strategy id -> name
	slices := make(map[string]*StrategySlice, len(strategies))
	for _, strat := range strategies {
		names[strat.ID] = strat.Name
		slices[strat.Name] = &StrategySlice{Strategy: strat.Name}
	}

	for _, proj := range projects {
		name, ok := names[proj.StrategyID]
		if !ok {
			continue
		}
		slices[name].Projects++
		if e.isActive(proj.Status) {
			slices[name].ActiveProjects++
		}
	}
	for _, evt := range events {
		proj, ok := byID[evt.ProjectID]
		if !ok {
			continue
		}
		name, ok := names[proj.StrategyID]
		if !ok {
			continue
		}
		switch evt.Kind {
		case event.KindProposal:
			slices[name].Proposals += evt.Count
		case event.KindApproval:
			slices[name].Approvals += evt.Count
		}
	}

	result := make([]StrategySlice, 0, len(slices))
	for _, slice := range slices {
		result = append(result, *slice)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Projects != result[j].Projects {
			return result[i].Projects > result[j].Projects
		}
		return result[i].Strategy < result[j].Strategy
	})
	return result
}

// computeHeatmap builds the (champion, month) activity matrix. Cell values
// are raw proposal+approval sums; intensity rescales against the maximum
// cell so presentation gets a plain numeric grid.
func computeHeatmap(projects []project.Project, events []event.MonthlyEvent, byID map[string]*project.Project) Heatmap {
	championSet := make(map[string]bool, len(projects))
	for _, proj := range projects {
		championSet[proj.Champion] = true
	}
	monthSet := make(map[string]bool)
	sums := make(map[string]map[string]int)
	for _, evt := range events {
		proj, ok := byID[evt.ProjectID]
		if !ok {
			continue
		}
		month := evt.MonthKey.String()
		monthSet[month] = true
		if sums[proj.Champion] == nil {
			sums[proj.Champion] = make(map[string]int)
		}
		sums[proj.Champion][month] += evt.Count
	}

	hm := Heatmap{
		Champions: sortedKeys(championSet),
		Months:    sortedKeys(monthSet),
	}

	max := 0
	hm.Cells = make([][]int, len(hm.Champions))
	for i, champion := range hm.Champions {
		hm.Cells[i] = make([]int, len(hm.Months))
		for j, month := range hm.Months {
			value := sums[champion][month]
			hm.Cells[i][j] = value
			if value > max {
				max = value
			}
		}
	}

	hm.Intensity = make([][]float64, len(hm.Champions))
	for i := range hm.Cells {
		hm.Intensity[i] = make([]float64, len(hm.Months))
		if max == 0 {
			continue
		}
		for j, value := range hm.Cells[i] {
			hm.Intensity[i][j] = float64(value) / float64(max)
		}
	}
	return hm
}

func computeTrend(events []event.MonthlyEvent) Trend {
	type monthTally struct {
		proposals int
		approvals int
	}
	byMonth := make(map[string]*monthTally)
	for _, evt := range events {
		month := evt.MonthKey.String()
		if byMonth[month] == nil {
			byMonth[month] = &monthTally{}
		}
		switch evt.Kind {
		case event.KindProposal:
			byMonth[month].proposals += evt.Count
		case event.KindApproval:
			byMonth[month].approvals += evt.Count
		}
	}

	trend := Trend{}
	for month := range byMonth {
		trend.Months = append(trend.Months, month)
	}
	sort.Strings(trend.Months)
	for _, month := range trend.Months {
		trend.Proposals = append(trend.Proposals, byMonth[month].proposals)
		trend.Approvals = append(trend.Approvals, byMonth[month].approvals)
	}
	return trend
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
