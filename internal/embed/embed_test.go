package embed

import (
	"strings"
	"testing"

	"github.com/ameistad/carenote/internal/records"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestDailySpecialNotePrompt(t *testing.T) {
	r := records.NewRecord("2025-03-03")
	r.CustomerName = "홍길동"
	r.PhysicalNote = "식사 후 산책함"
	r.ProgEnhanceDetail = "실버체조, 두뇌튼튼교실"

	system, user, err := DailySpecialNotePrompt(r, []string{"실버체조", "두뇌튼튼교실"})
	assert.NoError(t, err)
	assert.Contains(t, system, "physical_candidates")
	assert.Contains(t, system, "original_cognitive_evaluation")
	assert.Contains(t, user, "<customer_name>홍길동</customer_name>")
	assert.Contains(t, user, "<program_names>실버체조, 두뇌튼튼교실</program_names>")
	assert.Contains(t, user, "<physical_note>식사 후 산책함</physical_note>")
}

func TestWeeklyWriterPrompt(t *testing.T) {
	system, user, err := WeeklyWriterPrompt(WeeklyPromptInput{
		Name:         "홍길동",
		StartDate:    "2025-03-03",
		EndDate:      "2025-03-09",
		PhysicalPrev: "없음",
		PhysicalCurr: "미니골프 참여",
	})
	assert.NoError(t, err)
	assert.Contains(t, system, "100자~150자")
	assert.Contains(t, user, "<period>2025-03-03 ~ 2025-03-09</period>")
	assert.Equal(t, 2, strings.Count(user, "미니골프 참여"))
}

func TestRenderInitConfig(t *testing.T) {
	data, err := RenderInitConfig(ConfigTemplateData{Port: "8501", AIProvider: "gemini", LogLevel: "info"})
	assert.NoError(t, err)

	var parsed map[string]any
	assert.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, 8501, parsed["port"])
	assert.NotContains(t, parsed, "dataDir")
	ai, ok := parsed["ai"].(map[string]any)
	if assert.True(t, ok) {
		assert.Equal(t, "gemini", ai["provider"])
	}
}

func TestRenderPromptUnknownTemplate(t *testing.T) {
	_, err := RenderPrompt("missing.tmpl", nil)
	assert.Error(t, err)
}
