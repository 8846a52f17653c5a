// Package dashboard aggregates employee and AI evaluations over a date range.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ameistad/carenote/internal/db"
	"golang.org/x/sync/errgroup"
)

const (
	// AllUsers disables the employee filter.
	AllUsers = "전체 보기"

	// HighRiskThreshold is the number of issues that puts an employee under close watch.
	HighRiskThreshold = 5

	dateLayout = "2006-01-02"
	noValue    = "N/A"
	sparkWeeks = 4
)

// GradeOrder is the order grades are reported in.
var GradeOrder = []string{db.GradeExcellent, db.GradeAverage, db.GradeImprove, db.GradePoor}

var ErrInvalidRange = errors.New("invalid date range")

type Store interface {
	ListEmployeeEvaluationsInRange(start, end string) ([]db.EmployeeEvaluation, error)
	ListAIEvaluationsInRange(start, end string) ([]db.AIEvaluation, error)
	ActiveUsers() ([]db.User, error)
	CountEmployeeEvaluations(start, end string) (int, error)
}

type Filter struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	UserName string `json:"user,omitempty"`
}

func (f Filter) individual() bool {
	return f.UserName != "" && f.UserName != AllUsers
}

type KPIs struct {
	TotalIssues       int    `json:"total_issues"`
	TopType           string `json:"top_type"`
	TopTypeCount      int    `json:"top_type_count"`
	HighRiskEmployees int    `json:"high_risk_employees"`
	PrevMonthCount    int    `json:"prev_month_count"`
	// ChangeFromPrevMonth is TotalIssues minus PrevMonthCount.
	ChangeFromPrevMonth int `json:"change_from_prev_month"`
}

// TrendPoint is the number of issues per evaluation type on one day.
type TrendPoint struct {
	Date   string         `json:"date"`
	Counts map[string]int `json:"counts"`
}

type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type EmployeeRank struct {
	Rank    int    `json:"rank"`
	Name    string `json:"name"`
	Count   int    `json:"count"`
	TopType string `json:"top_type"`
}

// WeekCount is the number of issues in one ISO week, e.g. 2025-W10.
type WeekCount struct {
	Week  string `json:"week"`
	Count int    `json:"count"`
}

type IndividualReport struct {
	Name        string                  `json:"name"`
	Total       int                     `json:"total"`
	TopType     string                  `json:"top_type"`
	TopCategory string                  `json:"top_category"`
	TypeCounts  []Count                 `json:"type_counts"`
	Weekly      []WeekCount             `json:"weekly"`
	History     []db.EmployeeEvaluation `json:"history"`
}

type Dashboard struct {
	Filter            Filter            `json:"filter"`
	KPIs              KPIs              `json:"kpis"`
	TotalEmployees    int               `json:"total_employees"`
	DailyTrend        []TrendPoint      `json:"daily_trend"`
	GradeDistribution []Count           `json:"grade_distribution"`
	CategoryCounts    []Count           `json:"category_counts"`
	Ranking           []EmployeeRank    `json:"ranking"`
	ActiveUsers       []string          `json:"active_users"`
	Individual        *IndividualReport `json:"individual,omitempty"`
}

type data struct {
	employeeEvals []db.EmployeeEvaluation
	aiEvals       []db.AIEvaluation
	users         []db.User
	prevMonth     int
	recent        []db.EmployeeEvaluation
}

// Build loads everything the dashboard shows for f and aggregates it.
func Build(ctx context.Context, store Store, f Filter) (*Dashboard, error) {
	start, end, err := parseRange(f)
	if err != nil {
		return nil, err
	}

	d, err := load(ctx, store, start, end)
	if err != nil {
		return nil, err
	}

	filtered := d.employeeEvals
	if f.individual() {
		filtered = byUser(d.employeeEvals, f.UserName)
	}

	perUser := countBy(d.employeeEvals, func(e db.EmployeeEvaluation) string { return e.TargetUserName })
	topType, topTypeCount := top(countBy(filtered, evaluationType), db.EvalTypes)

	dash := &Dashboard{
		Filter: f,
		KPIs: KPIs{
			TotalIssues:         len(filtered),
			TopType:             topType,
			TopTypeCount:        topTypeCount,
			HighRiskEmployees:   highRisk(perUser),
			PrevMonthCount:      d.prevMonth,
			ChangeFromPrevMonth: len(filtered) - d.prevMonth,
		},
		TotalEmployees:    len(perUser),
		DailyTrend:        dailyTrend(filtered, start, end),
		GradeDistribution: gradeDistribution(d.aiEvals),
		CategoryCounts:    sortedCounts(countBy(filtered, func(e db.EmployeeEvaluation) string { return e.Category })),
		Ranking:           ranking(d.employeeEvals),
		ActiveUsers:       make([]string, 0, len(d.users)),
	}
	for _, u := range d.users {
		dash.ActiveUsers = append(dash.ActiveUsers, u.Name)
	}
	if f.individual() {
		dash.Individual = individualReport(f.UserName, filtered, byUser(d.recent, f.UserName), end)
	}
	return dash, nil
}

func parseRange(f Filter) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, f.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %q", ErrInvalidRange, f.Start)
	}
	end, err := time.Parse(dateLayout, f.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %q", ErrInvalidRange, f.End)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, f.End, f.Start)
	}
	return start, end, nil
}

// load runs the dashboard queries concurrently.
func load(ctx context.Context, store Store, start, end time.Time) (data, error) {
	if err := ctx.Err(); err != nil {
		return data{}, err
	}
	var d data
	startStr, endStr := start.Format(dateLayout), end.Format(dateLayout)
	prevStart, prevEnd := previousMonth(start)

	var eg errgroup.Group
	eg.Go(func() error {
		var err error
		d.employeeEvals, err = store.ListEmployeeEvaluationsInRange(startStr, endStr)
		return err
	})
	eg.Go(func() error {
		var err error
		d.aiEvals, err = store.ListAIEvaluationsInRange(startStr, endStr)
		return err
	})
	eg.Go(func() error {
		var err error
		d.users, err = store.ActiveUsers()
		return err
	})
	eg.Go(func() error {
		var err error
		d.prevMonth, err = store.CountEmployeeEvaluations(prevStart.Format(dateLayout), prevEnd.Format(dateLayout))
		return err
	})
	eg.Go(func() error {
		var err error
		d.recent, err = store.ListEmployeeEvaluationsInRange(end.AddDate(0, 0, -7*sparkWeeks).Format(dateLayout), endStr)
		return err
	})
	if err := eg.Wait(); err != nil {
		return data{}, fmt.Errorf("failed to load dashboard data: %w", err)
	}
	return d, nil
}

// previousMonth returns the first day of the month before start's month and the day before start.
func previousMonth(start time.Time) (time.Time, time.Time) {
	firstOfMonth := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	return firstOfMonth.AddDate(0, -1, 0), start.AddDate(0, 0, -1)
}

func evaluationType(e db.EmployeeEvaluation) string {
	return e.EvaluationType
}

func byUser(evals []db.EmployeeEvaluation, name string) []db.EmployeeEvaluation {
	var out []db.EmployeeEvaluation
	for _, e := range evals {
		if e.TargetUserName == name {
			out = append(out, e)
		}
	}
	return out
}

func countBy(evals []db.EmployeeEvaluation, key func(db.EmployeeEvaluation) string) map[string]int {
	counts := map[string]int{}
	for _, e := range evals {
		counts[key(e)]++
	}
	return counts
}

// top returns the key with the highest count. Ties go to the key earliest in order,
// then to the alphabetically first one.
func top(counts map[string]int, order []string) (string, int) {
	best, bestCount := noValue, 0
	for _, k := range orderedKeys(counts, order) {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best, bestCount
}

func orderedKeys(counts map[string]int, order []string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, k := range order {
		if _, ok := counts[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range counts {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func highRisk(perUser map[string]int) int {
	n := 0
	for _, c := range perUser {
		if c >= HighRiskThreshold {
			n++
		}
	}
	return n
}

// dailyTrend counts issues per type for every day between start and end, zero-filled.
func dailyTrend(evals []db.EmployeeEvaluation, start, end time.Time) []TrendPoint {
	byDay := map[string]map[string]int{}
	for _, e := range evals {
		day := e.EvaluationDate
		if len(day) > len(dateLayout) {
			day = day[:len(dateLayout)]
		}
		if byDay[day] == nil {
			byDay[day] = map[string]int{}
		}
		byDay[day][e.EvaluationType]++
	}

	var points []TrendPoint
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := d.Format(dateLayout)
		counts := make(map[string]int, len(db.EvalTypes))
		for _, t := range db.EvalTypes {
			counts[t] = byDay[day][t]
		}
		points = append(points, TrendPoint{Date: day, Counts: counts})
	}
	return points
}

func gradeDistribution(evals []db.AIEvaluation) []Count {
	counts := map[string]int{}
	for _, e := range evals {
		counts[e.GradeCode]++
	}
	out := make([]Count, 0, len(GradeOrder))
	for _, g := range GradeOrder {
		out = append(out, Count{Key: g, Count: counts[g]})
	}
	return out
}

// sortedCounts orders counts by count descending, then by key.
func sortedCounts(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for k, c := range counts {
		out = append(out, Count{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func ranking(evals []db.EmployeeEvaluation) []EmployeeRank {
	types := map[string]map[string]int{}
	for _, e := range evals {
		if types[e.TargetUserName] == nil {
			types[e.TargetUserName] = map[string]int{}
		}
		types[e.TargetUserName][e.EvaluationType]++
	}

	ranks := make([]EmployeeRank, 0, len(types))
	for name, counts := range types {
		total := 0
		for _, c := range counts {
			total += c
		}
		topType, _ := top(counts, db.EvalTypes)
		ranks = append(ranks, EmployeeRank{Name: name, Count: total, TopType: topType})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Count != ranks[j].Count {
			return ranks[i].Count > ranks[j].Count
		}
		return ranks[i].Name < ranks[j].Name
	})
	for i := range ranks {
		ranks[i].Rank = i + 1
	}
	return ranks
}

func individualReport(name string, evals, recent []db.EmployeeEvaluation, end time.Time) *IndividualReport {
	report := &IndividualReport{Name: name, Total: len(evals), TopType: noValue, TopCategory: noValue}
	if len(evals) > 0 {
		report.TopType, _ = top(countBy(evals, evaluationType), db.EvalTypes)
		report.TopCategory, _ = top(countBy(evals, func(e db.EmployeeEvaluation) string { return e.Category }), db.EvalCategories)
	}

	typeCounts := countBy(evals, evaluationType)
	for _, t := range db.EvalTypes {
		report.TypeCounts = append(report.TypeCounts, Count{Key: t, Count: typeCounts[t]})
	}

	report.Weekly = weeklyCounts(recent, end)

	report.History = append([]db.EmployeeEvaluation(nil), evals...)
	sort.SliceStable(report.History, func(i, j int) bool {
		return report.History[i].EvaluationDate > report.History[j].EvaluationDate
	})
	return report
}

// weeklyCounts counts evaluations per ISO week for the last four weeks up to and including end's week.
func weeklyCounts(evals []db.EmployeeEvaluation, end time.Time) []WeekCount {
	counts := map[string]int{}
	for _, e := range evals {
		t, err := time.Parse(dateLayout, strings.TrimSpace(firstN(e.EvaluationDate, len(dateLayout))))
		if err != nil {
			continue
		}
		counts[isoWeek(t)]++
	}

	weeks := make([]WeekCount, 0, sparkWeeks)
	for i := sparkWeeks - 1; i >= 0; i-- {
		week := isoWeek(end.AddDate(0, 0, -7*i))
		weeks = append(weeks, WeekCount{Week: week, Count: counts[week]})
	}
	return weeks
}

func isoWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func firstN(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
