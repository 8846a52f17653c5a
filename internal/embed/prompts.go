package embed

import (
	"fmt"

	"github.com/ameistad/carenote/internal/records"
)

type dailyPromptData struct {
	Record   records.Record
	Programs []string
}

// DailySpecialNotePrompt returns the system and user prompts for evaluating and rewriting
// the physical and cognitive special notes of a record. programs are the program names
// found in the record's activity text.
func DailySpecialNotePrompt(record records.Record, programs []string) (string, string, error) {
	system, err := RenderPrompt(DailySystemTemplate, nil)
	if err != nil {
		return "", "", fmt.Errorf("daily system prompt: %w", err)
	}
	if programs == nil {
		programs = []string{}
	}
	user, err := RenderPrompt(DailyUserTemplate, dailyPromptData{Record: record, Programs: programs})
	if err != nil {
		return "", "", fmt.Errorf("daily user prompt: %w", err)
	}
	return system, user, nil
}

// WeeklyPromptInput is the material for the weekly status report.
type WeeklyPromptInput struct {
	Name          string
	StartDate     string
	EndDate       string
	PhysicalPrev  string
	PhysicalCurr  string
	CognitivePrev string
	CognitiveCurr string
	// MealTrend and ToiletTrend are 증가, 감소, 유지 or 데이터 부족.
	MealTrend   string
	ToiletTrend string
}

func WeeklyWriterPrompt(input WeeklyPromptInput) (string, string, error) {
	system, err := RenderPrompt(WeeklySystemTemplate, nil)
	if err != nil {
		return "", "", fmt.Errorf("weekly system prompt: %w", err)
	}
	user, err := RenderPrompt(WeeklyUserTemplate, input)
	if err != nil {
		return "", "", fmt.Errorf("weekly user prompt: %w", err)
	}
	return system, user, nil
}
