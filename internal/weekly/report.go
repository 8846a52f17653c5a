package weekly

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ameistad/carenote/internal/aiclient"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/embed"
)

var ErrEmptyReport = errors.New("AI returned an empty weekly report")

// GenerateReport asks the model for the weekly status paragraph of the recipient called name.
func (s *Service) GenerateReport(ctx context.Context, name string, week Range, payload AIPayload) (string, error) {
	client, err := s.clients.Client()
	if err != nil {
		return "", fmt.Errorf("AI client unavailable: %w", err)
	}

	system, user, err := embed.WeeklyWriterPrompt(promptInput(name, week, payload))
	if err != nil {
		return "", err
	}

	content, err := client.ChatCompletion(ctx, aiclient.ChatRequest{
		Model: s.model,
		Messages: []aiclient.Message{
			{Role: aiclient.RoleSystem, Content: system},
			{Role: aiclient.RoleUser, Content: user},
		},
		Temperature: s.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate weekly report: %w", err)
	}

	report := strings.TrimSpace(content)
	if report == "" {
		return "", ErrEmptyReport
	}
	s.logger.Info("Weekly report generated", "name", name, "week", week.Start, "length", len([]rune(report)))
	return report, nil
}

func promptInput(name string, week Range, payload AIPayload) embed.WeeklyPromptInput {
	return embed.WeeklyPromptInput{
		Name:          name,
		StartDate:     week.Start,
		EndDate:       week.End,
		PhysicalPrev:  SafeText(payload.PreviousWeek.Physical),
		PhysicalCurr:  SafeText(payload.CurrentWeek.Physical),
		CognitivePrev: SafeText(payload.PreviousWeek.Cognitive),
		CognitiveCurr: SafeText(payload.CurrentWeek.Cognitive),
		MealTrend:     TrendLabel(payload.Changes.Meal),
		ToiletTrend:   TrendLabel(payload.Changes.Toilet),
	}
}

// GenerateWeeklyReport analyzes the week containing weekStart, writes the report and stores it.
func (s *Service) GenerateWeeklyReport(ctx context.Context, customerID int64, name, weekStart string) (string, *Status, error) {
	status, err := s.ComputeWeeklyStatus(ctx, customerID, name, weekStart, true)
	if err != nil {
		return "", nil, err
	}
	if !status.HasData() || status.Trend == nil {
		return "", status, fmt.Errorf("no records for %s between %s and %s: %w", name, status.Previous.Start, status.Current.End, db.ErrNotFound)
	}

	report, err := s.GenerateReport(ctx, name, status.Current, status.Trend.AIPayload)
	if err != nil {
		return "", status, err
	}
	if err := s.SaveReport(customerID, status.Current, report); err != nil {
		return "", status, err
	}
	return report, status, nil
}

func (s *Service) SaveReport(customerID int64, week Range, text string) error {
	if err := s.store.SaveWeeklyStatus(customerID, week.Start, week.End, db.WeeklyKindReport, text); err != nil {
		return fmt.Errorf("failed to save weekly report: %w", err)
	}
	return nil
}

// LoadReport returns the stored report for the week, or db.ErrNotFound.
func (s *Service) LoadReport(customerID int64, week Range) (string, error) {
	return s.store.LoadWeeklyStatus(customerID, week.Start, week.End, db.WeeklyKindReport)
}

// ListReports returns the customer's latest reports, newest week first.
func (s *Service) ListReports(customerID int64, limit int) ([]db.WeeklyStatus, error) {
	return s.store.ListWeeklyStatus(customerID, db.WeeklyKindReport, limit)
}
