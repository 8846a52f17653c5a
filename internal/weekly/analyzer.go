// Package weekly compares a recipient's care records week over week and writes the weekly status report.
package weekly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ameistad/carenote/internal/aiclient"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/records"
)

const dateLayout = "2006-01-02"

const (
	TrendUp    = "상승"
	TrendDown  = "하락"
	TrendNew   = "신규 데이터"
	TrendFlat  = "변화 없음"
	noDataText = "데이터 부족"
)

type category struct {
	key   string
	label string
	note  func(Row) string
}

var categories = []category{
	{"physical", "신체활동", func(r Row) string { return r.PhysicalNote }},
	{"cognitive", "인지관리", func(r Row) string { return r.CognitiveNote }},
	{"nursing", "간호관리", func(r Row) string { return r.NursingNote }},
	{"functional", "기능회복", func(r Row) string { return r.FunctionalNote }},
}

// Store is the part of the database the weekly service needs.
type Store interface {
	GetCustomerRecords(customerID int64, start, end string) ([]db.DailyRecord, error)
	GetCustomersWithRecords(start, end string) ([]db.CustomerRecordCount, error)
	SaveWeeklyStatus(customerID int64, start, end, kind, text string) error
	LoadWeeklyStatus(customerID int64, start, end, kind string) (string, error)
	ListWeeklyStatus(customerID int64, kind string, limit int) ([]db.WeeklyStatus, error)
}

// ClientProvider hands out the AI client, see aiclient.Resolver.
type ClientProvider interface {
	Client() (aiclient.Client, error)
}

type Service struct {
	store       Store
	clients     ClientProvider
	logger      *slog.Logger
	model       string
	temperature float64
}

type ServiceOption func(*Service)

func WithModel(model string) ServiceOption {
	return func(s *Service) { s.model = model }
}

func WithTemperature(t float64) ServiceOption {
	return func(s *Service) { s.temperature = t }
}

func NewService(store Store, clients ClientProvider, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, clients: clients, logger: logger, temperature: 0.7}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Range is an inclusive date range in YYYY-MM-DD form.
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Row is the slice of a daily record the analysis reads.
type Row struct {
	Date             string `json:"date"`
	TotalServiceTime string `json:"total_service_time"`
	PhysicalNote     string `json:"physical_note"`
	CognitiveNote    string `json:"cognitive_note"`
	NursingNote      string `json:"nursing_note"`
	FunctionalNote   string `json:"functional_note"`
	MealBreakfast    string `json:"meal_breakfast"`
	MealLunch        string `json:"meal_lunch"`
	MealDinner       string `json:"meal_dinner"`
	ToiletCare       string `json:"toilet_care"`
	BathTime         string `json:"bath_time"`
	BPTemp           string `json:"bp_temp"`
	ProgTherapy      string `json:"prog_therapy"`
}

func rowFromRecord(r records.Record) Row {
	return Row{
		Date:             r.Date,
		TotalServiceTime: r.TotalServiceTime,
		PhysicalNote:     r.PhysicalNote,
		CognitiveNote:    r.CognitiveNote,
		NursingNote:      r.NursingNote,
		FunctionalNote:   r.FunctionalNote,
		MealBreakfast:    r.MealBreakfast,
		MealLunch:        r.MealLunch,
		MealDinner:       r.MealDinner,
		ToiletCare:       r.ToiletCare,
		BathTime:         r.BathTime,
		BPTemp:           r.BPTemp,
		ProgTherapy:      r.ProgTherapy,
	}
}

func (r Row) meals() []string {
	return []string{r.MealBreakfast, r.MealLunch, r.MealDinner}
}

// attended reports whether the recipient came in that day.
func (r Row) attended() bool {
	total := strings.TrimSpace(r.TotalServiceTime)
	return total != "" && !records.IsAbsenceStatus(total)
}

// CategoryScore compares the average note score of one care category between the two weeks.
type CategoryScore struct {
	Label string   `json:"label"`
	Prev  *float64 `json:"prev"`
	Curr  *float64 `json:"curr"`
	Diff  *float64 `json:"diff"`
	Trend string   `json:"trend"`
}

// Status is the result of ComputeWeeklyStatus.
type Status struct {
	CustomerID int64                    `json:"customer_id"`
	Name       string                   `json:"name"`
	Previous   Range                    `json:"previous"`
	Current    Range                    `json:"current"`
	Scores     map[string]CategoryScore `json:"scores"`
	Raw        []Row                    `json:"raw"`
	Trend      *Trend                   `json:"trend,omitempty"`
	Cached     bool                     `json:"cached"`
}

// HasData reports whether any record fell into the two weeks.
func (s *Status) HasData() bool {
	return len(s.Raw) > 0
}

// WeekRanges aligns weekStart to its Monday and returns the previous and the current week.
func WeekRanges(weekStart string) (Range, Range, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(weekStart))
	if err != nil {
		return Range{}, Range{}, fmt.Errorf("invalid week start %q: %w", weekStart, err)
	}
	start := t.AddDate(0, 0, -((int(t.Weekday()) + 6) % 7))
	prev := Range{
		Start: start.AddDate(0, 0, -7).Format(dateLayout),
		End:   start.AddDate(0, 0, -1).Format(dateLayout),
	}
	curr := Range{
		Start: start.Format(dateLayout),
		End:   start.AddDate(0, 0, 6).Format(dateLayout),
	}
	return prev, curr, nil
}

// ComputeWeeklyStatus compares the week containing weekStart with the week before it.
// With useCache set, a stored analysis for the same week is returned as is. Fresh results
// are stored when there was data to analyze.
func (s *Service) ComputeWeeklyStatus(ctx context.Context, customerID int64, name, weekStart string, useCache bool) (*Status, error) {
	prev, curr, err := WeekRanges(weekStart)
	if err != nil {
		return nil, err
	}

	if useCache {
		if cached, ok := s.loadCached(customerID, curr); ok {
			return cached, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	recs, err := s.store.GetCustomerRecords(customerID, prev.Start, curr.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	status := &Status{
		CustomerID: customerID,
		Name:       name,
		Previous:   prev,
		Current:    curr,
		Scores:     map[string]CategoryScore{},
		Raw:        []Row{},
	}
	if len(recs) == 0 {
		return status, nil
	}

	for _, rec := range recs {
		status.Raw = append(status.Raw, rowFromRecord(rec.Record))
	}
	sort.SliceStable(status.Raw, func(i, j int) bool { return status.Raw[i].Date < status.Raw[j].Date })

	status.Scores = scoreCategories(status.Raw, curr.Start)

	previousReport, err := s.LoadReport(customerID, prev)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.logger.Warn("Failed to load previous weekly report", "customer_id", customerID, "error", err)
		}
		previousReport = ""
	}
	status.Trend = analyzeTrend(status.Raw, prev, curr, previousReport)

	s.saveCache(customerID, curr, status)
	return status, nil
}

func scoreCategories(rows []Row, currStart string) map[string]CategoryScore {
	prevScores := map[string][]int{}
	currScores := map[string][]int{}
	for _, row := range rows {
		bucket := prevScores
		if row.Date >= currStart {
			bucket = currScores
		}
		for _, c := range categories {
			bucket[c.key] = append(bucket[c.key], ScoreText(c.note(row)))
		}
	}

	scores := map[string]CategoryScore{}
	for _, c := range categories {
		prev := average(prevScores[c.key])
		curr := average(currScores[c.key])
		if prev == nil && curr == nil {
			continue
		}
		score := CategoryScore{Label: c.label, Prev: prev, Curr: curr, Trend: TrendFlat}
		switch {
		case prev != nil && curr != nil:
			diff := round1(*curr - *prev)
			score.Diff = &diff
			if diff > 1 {
				score.Trend = TrendUp
			} else if diff < -1 {
				score.Trend = TrendDown
			}
		case curr != nil:
			score.Trend = TrendNew
		}
		scores[c.key] = score
	}
	return scores
}

func average(values []int) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	avg := round1(float64(sum) / float64(len(values)))
	return &avg
}

func (s *Service) loadCached(customerID int64, curr Range) (*Status, bool) {
	text, err := s.store.LoadWeeklyStatus(customerID, curr.Start, curr.End, db.WeeklyKindAnalysis)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.logger.Warn("Failed to load weekly cache", "customer_id", customerID, "error", err)
		}
		return nil, false
	}
	var status Status
	if err := json.Unmarshal([]byte(text), &status); err != nil {
		s.logger.Warn("Ignoring unreadable weekly cache", "customer_id", customerID, "week", curr.Start, "error", err)
		return nil, false
	}
	status.Cached = true
	return &status, true
}

// saveCache stores the analysis. Failures are logged and otherwise ignored.
func (s *Service) saveCache(customerID int64, curr Range, status *Status) {
	data, err := json.Marshal(status)
	if err != nil {
		s.logger.Warn("Failed to encode weekly cache", "customer_id", customerID, "error", err)
		return
	}
	if err := s.store.SaveWeeklyStatus(customerID, curr.Start, curr.End, db.WeeklyKindAnalysis, string(data)); err != nil {
		s.logger.Warn("Failed to save weekly cache", "customer_id", customerID, "error", err)
	}
}

// RefreshRecent recomputes the analysis, bypassing the cache, for every customer with records
// in the two weeks ending the day before now. It returns how many customers were refreshed.
func (s *Service) RefreshRecent(ctx context.Context, now time.Time) (int, error) {
	lastWeek := now.AddDate(0, 0, -7).Format(dateLayout)
	prev, curr, err := WeekRanges(lastWeek)
	if err != nil {
		return 0, err
	}
	customers, err := s.store.GetCustomersWithRecords(prev.Start, curr.End)
	if err != nil {
		return 0, fmt.Errorf("failed to list customers with records: %w", err)
	}

	refreshed := 0
	for _, c := range customers {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if _, err := s.ComputeWeeklyStatus(ctx, c.CustomerID, c.Name, curr.Start, false); err != nil {
			s.logger.Warn("Weekly refresh failed", "customer_id", c.CustomerID, "error", err)
			continue
		}
		refreshed++
	}
	s.logger.Info("Weekly status refreshed", "week", curr.Start, "customers", refreshed)
	return refreshed, nil
}
