// Package evaluation grades the special notes of daily records with an LLM and stores the results.
package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ameistad/carenote/internal/aiclient"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/embed"
	"github.com/ameistad/carenote/internal/records"
)

const (
	CategoryPhysical  = "PHYSICAL"
	CategoryCognitive = "COGNITIVE"
	CategoryNursing   = "NURSING"
	CategoryRecovery  = "RECOVERY"
)

// Store is the part of the database the service needs.
type Store interface {
	GetRecord(recordID int64) (db.DailyRecord, error)
	SaveAIEvaluation(e db.AIEvaluation) (int64, error)
	GetAIEvaluation(recordID int64, category string) (db.AIEvaluation, error)
	RecordIDByCustomerNameAndDate(customerName, date string) (int64, error)
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

// Candidate is a rewritten note with the model's verdict on it.
type Candidate struct {
	CorrectedNote string `json:"corrected_note"`
	OXEvaluation
}

type specialNoteResponse struct {
	OriginalPhysical    OXEvaluation `json:"original_physical_evaluation"`
	OriginalCognitive   OXEvaluation `json:"original_cognitive_evaluation"`
	PhysicalCandidates  []Candidate  `json:"physical_candidates"`
	CognitiveCandidates []Candidate  `json:"cognitive_candidates"`
}

// SpecialNoteResult is the evaluation of a record's physical and cognitive notes
// together with the best rewrite for each.
type SpecialNoteResult struct {
	OriginalPhysical  ScoredEvaluation `json:"original_physical"`
	OriginalCognitive ScoredEvaluation `json:"original_cognitive"`
	Physical          Candidate        `json:"physical"`
	Cognitive         Candidate        `json:"cognitive"`
	PhysicalNote      string           `json:"physical_note"`
	CognitiveNote     string           `json:"cognitive_note"`
}

// bestCandidate returns the candidate with the most O marks, the first one on ties.
func bestCandidate(candidates []Candidate) Candidate {
	best := Candidate{}
	bestScore := -1
	for _, c := range candidates {
		if score := c.passes(); score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}

// EvaluateSpecialNote asks the model to grade and rewrite the record's physical and cognitive notes.
// It returns nil when both notes are empty or when the model could not be used; failures are logged.
func (s *Service) EvaluateSpecialNote(ctx context.Context, record records.Record) *SpecialNoteResult {
	physical := strings.TrimSpace(record.PhysicalNote)
	cognitive := strings.TrimSpace(record.CognitiveNote)
	if physical == "" && cognitive == "" {
		return nil
	}

	client, err := s.clients.Client()
	if err != nil {
		s.logger.Warn("AI client unavailable", "error", err)
		return nil
	}

	programs := ExtractPrograms(strings.Join([]string{record.ProgEnhanceDetail, record.FunctionalNote}, " "))
	system, user, err := embed.DailySpecialNotePrompt(record, programs)
	if err != nil {
		s.logger.Error("Failed to build prompt", "error", err)
		return nil
	}

	content, err := client.ChatCompletion(ctx, aiclient.ChatRequest{
		Model: s.model,
		Messages: []aiclient.Message{
			{Role: aiclient.RoleSystem, Content: system},
			{Role: aiclient.RoleUser, Content: user},
		},
		Temperature: s.temperature,
		JSON:        true,
	})
	if err != nil {
		s.logger.Error("AI evaluation failed", "customer", record.CustomerName, "date", record.Date, "error", err)
		return nil
	}

	var resp specialNoteResponse
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &resp); err != nil {
		s.logger.Error("Failed to parse AI evaluation", "customer", record.CustomerName, "date", record.Date, "error", err)
		return nil
	}

	return &SpecialNoteResult{
		OriginalPhysical:  ConvertOXToScore(resp.OriginalPhysical),
		OriginalCognitive: ConvertOXToScore(resp.OriginalCognitive),
		Physical:          bestCandidate(resp.PhysicalCandidates),
		Cognitive:         bestCandidate(resp.CognitiveCandidates),
		PhysicalNote:      record.PhysicalNote,
		CognitiveNote:     record.CognitiveNote,
	}
}

// stripCodeFence removes a ```json fence some models wrap around JSON output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// SaveSpecialNoteEvaluation stores the physical and cognitive evaluations of result. A nil result is ignored.
func (s *Service) SaveSpecialNoteEvaluation(recordID int64, result *SpecialNoteResult) error {
	if result == nil {
		return nil
	}
	rows := []struct {
		category   string
		eval       ScoredEvaluation
		suggestion string
		original   string
	}{
		{db.CategoryPhysical, result.OriginalPhysical, result.Physical.CorrectedNote, result.PhysicalNote},
		{db.CategoryCognitive, result.OriginalCognitive, result.Cognitive.CorrectedNote, result.CognitiveNote},
	}
	for _, row := range rows {
		eval := row.eval
		if eval.Grade == "" {
			eval = EmptyEvaluation()
		}
		if _, err := s.store.SaveAIEvaluation(toDBEvaluation(recordID, row.category, eval, row.suggestion, row.original)); err != nil {
			return fmt.Errorf("failed to save %s evaluation: %w", row.category, err)
		}
	}
	return nil
}

func toDBEvaluation(recordID int64, category string, e ScoredEvaluation, suggestion, original string) db.AIEvaluation {
	return db.AIEvaluation{
		RecordID:         recordID,
		Category:         db.KoreanCategory(category),
		OERFidelity:      e.OERFidelity,
		SpecificityScore: e.Specificity,
		GrammarScore:     e.Grammar,
		GradeCode:        e.Grade,
		SuggestionText:   suggestion,
		OriginalText:     original,
	}
}

// NoteEvaluation is the outcome of evaluating one category of a record.
type NoteEvaluation struct {
	Grade      string            `json:"grade_code"`
	Evaluation *ScoredEvaluation `json:"evaluation"`
	Suggestion string            `json:"suggestion,omitempty"`
}

func isSkippedNote(text string) bool {
	switch strings.TrimSpace(text) {
	case "", "특이사항 없음", "특이사항없음", records.AbsenceAbsent:
		return true
	}
	return false
}

// ProcessDailyNoteEvaluation evaluates one category's note of a record and always stores the outcome.
// Physical and cognitive notes go to the model; nursing and recovery notes get a baseline 평균.
func (s *Service) ProcessDailyNoteEvaluation(ctx context.Context, recordID int64, category, text string) (NoteEvaluation, error) {
	category = strings.ToUpper(strings.TrimSpace(category))
	result := NoteEvaluation{Grade: db.GradeNone}
	stored := EmptyEvaluation()

	if !isSkippedNote(text) {
		switch category {
		case CategoryPhysical, CategoryCognitive:
			stored, result = s.evaluateSection(ctx, recordID, category, text)
		case CategoryNursing, CategoryRecovery:
			stored = baselineEvaluation()
			result = NoteEvaluation{Grade: stored.Grade, Evaluation: &stored}
		default:
			return NoteEvaluation{}, fmt.Errorf("unknown evaluation category: %s", category)
		}
	}

	if _, err := s.store.SaveAIEvaluation(toDBEvaluation(recordID, category, stored, result.Suggestion, text)); err != nil {
		return NoteEvaluation{}, fmt.Errorf("failed to save evaluation: %w", err)
	}
	return result, nil
}

func (s *Service) evaluateSection(ctx context.Context, recordID int64, category, text string) (ScoredEvaluation, NoteEvaluation) {
	none := NoteEvaluation{Grade: db.GradeNone}

	stored, err := s.store.GetRecord(recordID)
	if err != nil {
		s.logger.Warn("Record not found for evaluation", "recordID", recordID, "error", err)
		return EmptyEvaluation(), none
	}
	record := stored.Record
	// evaluate only the requested note
	if category == CategoryPhysical {
		record.PhysicalNote = text
		record.CognitiveNote = ""
	} else {
		record.PhysicalNote = ""
		record.CognitiveNote = text
	}

	result := s.EvaluateSpecialNote(ctx, record)
	if result == nil {
		return EmptyEvaluation(), none
	}
	eval, suggestion := result.OriginalPhysical, result.Physical.CorrectedNote
	if category == CategoryCognitive {
		eval, suggestion = result.OriginalCognitive, result.Cognitive.CorrectedNote
	}
	if eval.Grade == "" {
		return EmptyEvaluation(), none
	}
	return eval, NoteEvaluation{Grade: eval.Grade, Evaluation: &eval, Suggestion: suggestion}
}

// RecordID returns the id of the customer's record for date, or nil when there is none.
func (s *Service) RecordID(customerName, date string) *int64 {
	id, err := s.store.RecordIDByCustomerNameAndDate(customerName, date)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.logger.Warn("Failed to look up record", "customer", customerName, "date", date, "error", err)
		}
		return nil
	}
	return &id
}

// StoredEvaluation is the suggestion and grade kept for a record's category.
type StoredEvaluation struct {
	Suggestion string `json:"suggestion"`
	Grade      string `json:"grade"`
}

// EvaluationFromDB returns the stored suggestion and grade. English categories are accepted.
func (s *Service) EvaluationFromDB(recordID int64, category string) StoredEvaluation {
	e, err := s.store.GetAIEvaluation(recordID, db.KoreanCategory(category))
	if err != nil {
		return StoredEvaluation{Grade: db.GradeNone}
	}
	grade := e.GradeCode
	if grade == "" {
		grade = db.GradeNone
	}
	return StoredEvaluation{Suggestion: e.SuggestionText, Grade: grade}
}
