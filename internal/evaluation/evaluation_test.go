package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ameistad/carenote/internal/aiclient"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/records"
	"github.com/stretchr/testify/assert"
)

const sampleResponse = `{
  "original_physical_evaluation": {"oer_fidelity": "O", "specificity": "O", "grammar": "X"},
  "original_cognitive_evaluation": {"oer_fidelity": "X", "specificity": "X", "grammar": "O"},
  "physical_candidates": [
    {"corrected_note": "후보1", "oer_fidelity": "O", "specificity": "X", "grammar": "O"},
    {"corrected_note": "후보2", "oer_fidelity": "O", "specificity": "O", "grammar": "O"},
    {"corrected_note": "후보3", "oer_fidelity": "O", "specificity": "O", "grammar": "O"}
  ],
  "cognitive_candidates": [
    {"corrected_note": "인지1", "oer_fidelity": "O", "specificity": "O", "grammar": "X"}
  ]
}`

type fakeClient struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (f *fakeClient) ChatCompletion(ctx context.Context, req aiclient.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.response, f.err
}

type fakeProvider struct {
	client aiclient.Client
	err    error
}

func (p fakeProvider) Client() (aiclient.Client, error) {
	return p.client, p.err
}

type fakeStore struct {
	mu      sync.Mutex
	records map[int64]db.DailyRecord
	evals   map[string]db.AIEvaluation
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[int64]db.DailyRecord{}, evals: map[string]db.AIEvaluation{}}
}

func evalKey(recordID int64, category string) string {
	return fmt.Sprintf("%d/%s", recordID, category)
}

func (f *fakeStore) GetRecord(recordID int64) (db.DailyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[recordID]
	if !ok {
		return db.DailyRecord{}, db.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) SaveAIEvaluation(e db.AIEvaluation) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evals[evalKey(e.RecordID, e.Category)] = e
	return int64(len(f.evals)), nil
}

func (f *fakeStore) GetAIEvaluation(recordID int64, category string) (db.AIEvaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.evals[evalKey(recordID, category)]
	if !ok {
		return db.AIEvaluation{}, db.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) RecordIDByCustomerNameAndDate(name, date string) (int64, error) {
	for id, r := range f.records {
		if r.CustomerName == name && r.Date == date {
			return id, nil
		}
	}
	return 0, db.ErrNotFound
}

func sampleRecord() records.Record {
	r := records.NewRecord("2025-03-03")
	r.CustomerName = "홍길동"
	r.TotalServiceTime = "480분"
	r.PhysicalNote = "점심 식사 후 산책함"
	r.CognitiveNote = "회상 대화에 참여함"
	r.NursingNote = "혈압 정상 범위"
	r.FunctionalNote = "실버체조 참여"
	return r
}

func TestConvertOXToScore(t *testing.T) {
	tests := []struct {
		eval      OXEvaluation
		wantScore int
		wantGrade string
	}{
		{OXEvaluation{"O", "O", "O"}, 3, db.GradeExcellent},
		{OXEvaluation{"O", "O", "X"}, 2, db.GradeAverage},
		{OXEvaluation{"O", "X", "O"}, 2, db.GradeAverage},
		{OXEvaluation{"X", "O", "O"}, 2, db.GradeAverage},
		{OXEvaluation{"O", "X", "X"}, 1, db.GradeImprove},
		{OXEvaluation{"X", "X", "O"}, 1, db.GradeImprove},
		{OXEvaluation{"X", "X", "X"}, 1, db.GradeImprove},
	}
	for _, tt := range tests {
		got := ConvertOXToScore(tt.eval)
		if got.Score != tt.wantScore || got.Grade != tt.wantGrade {
			t.Errorf("ConvertOXToScore(%+v) = %d/%s, want %d/%s", tt.eval, got.Score, got.Grade, tt.wantScore, tt.wantGrade)
		}
	}

	assert.Equal(t, ScoredEvaluation{}, ConvertOXToScore(OXEvaluation{}))
}

func TestCalculateGrade(t *testing.T) {
	tests := []struct {
		name string
		eval *NumericEvaluation
		want string
	}{
		{"excellent", &NumericEvaluation{95, 90, 95}, db.GradeExcellent},
		{"average", &NumericEvaluation{80, 75, 80}, db.GradeAverage},
		{"improve", &NumericEvaluation{60, 65, 70}, db.GradeImprove},
		{"nil", nil, db.GradeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateGrade(tt.eval))
		})
	}
}

func TestEmptyEvaluation(t *testing.T) {
	e := EmptyEvaluation()
	assert.Equal(t, "X", e.OERFidelity)
	assert.Equal(t, "X", e.Specificity)
	assert.Equal(t, "X", e.Grammar)
	assert.Equal(t, db.GradeNone, e.Grade)
}

func TestExtractPrograms(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"오늘은 두뇌튼튼교실과 힘뇌체조를 진행했습니다.", []string{"두뇌튼튼교실", "힘뇌체조"}},
		{"오늘은 미술교실을 진행했습니다.", []string{"미술교실"}},
		{"체력향상훈련과 인지활동프로그램 참여", []string{"체력향상훈련", "인지활동프로그램"}},
		{"건강체조 후 미니골프 활동", []string{"건강체조", "미니골프"}},
		{"재난상황 대응훈련을 실시함", []string{"재난상황 대응훈련"}},
		{"실버체조, 실버체조 반복", []string{"실버체조"}},
		{"윷놀이를 하심", []string{"윷놀이"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPrograms(tt.text))
		})
	}
}

func TestEvaluateSpecialNote(t *testing.T) {
	client := &fakeClient{response: "```json\n" + sampleResponse + "\n```"}
	svc := NewService(newFakeStore(), fakeProvider{client: client}, nil)

	result := svc.EvaluateSpecialNote(context.Background(), sampleRecord())
	if !assert.NotNil(t, result) {
		return
	}
	assert.Equal(t, db.GradeAverage, result.OriginalPhysical.Grade)
	assert.Equal(t, db.GradeImprove, result.OriginalCognitive.Grade)
	assert.Equal(t, "후보2", result.Physical.CorrectedNote, "first of the best-scoring candidates")
	assert.Equal(t, "인지1", result.Cognitive.CorrectedNote)
	assert.Equal(t, "점심 식사 후 산책함", result.PhysicalNote)
}

func TestEvaluateSpecialNoteReturnsNil(t *testing.T) {
	empty := sampleRecord()
	empty.PhysicalNote = ""
	empty.CognitiveNote = " "

	tests := []struct {
		name     string
		provider fakeProvider
		record   records.Record
	}{
		{"empty notes", fakeProvider{client: &fakeClient{response: sampleResponse}}, empty},
		{"client unavailable", fakeProvider{err: errors.New("no key")}, sampleRecord()},
		{"client error", fakeProvider{client: &fakeClient{err: aiclient.ErrRateLimited}}, sampleRecord()},
		{"invalid json", fakeProvider{client: &fakeClient{response: "not json"}}, sampleRecord()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newFakeStore(), tt.provider, nil)
			assert.Nil(t, svc.EvaluateSpecialNote(context.Background(), tt.record))
		})
	}
}

func TestSaveSpecialNoteEvaluation(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, fakeProvider{client: &fakeClient{response: sampleResponse}}, nil)

	assert.NoError(t, svc.SaveSpecialNoteEvaluation(1, nil))
	assert.Empty(t, store.evals)

	result := svc.EvaluateSpecialNote(context.Background(), sampleRecord())
	assert.NoError(t, svc.SaveSpecialNoteEvaluation(1, result))

	physical, err := store.GetAIEvaluation(1, db.CategoryPhysical)
	assert.NoError(t, err)
	assert.Equal(t, "후보2", physical.SuggestionText)
	assert.Equal(t, db.GradeAverage, physical.GradeCode)
	assert.Equal(t, "점심 식사 후 산책함", physical.OriginalText)

	cognitive, err := store.GetAIEvaluation(1, db.CategoryCognitive)
	assert.NoError(t, err)
	assert.Equal(t, "X", cognitive.OERFidelity)
}

func TestProcessDailyNoteEvaluation(t *testing.T) {
	store := newFakeStore()
	store.records[1] = db.DailyRecord{RecordID: 1, Record: sampleRecord()}
	svc := NewService(store, fakeProvider{client: &fakeClient{response: sampleResponse}}, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		category  string
		text      string
		wantGrade string
		wantEval  bool
	}{
		{"empty text", CategoryPhysical, "", db.GradeNone, false},
		{"absent", CategoryPhysical, "결석", db.GradeNone, false},
		{"no remarks", CategoryCognitive, "특이사항 없음", db.GradeNone, false},
		{"nursing baseline", CategoryNursing, "혈압 정상 범위", db.GradeAverage, true},
		{"recovery baseline", CategoryRecovery, "실버체조 참여", db.GradeAverage, true},
		{"physical via model", CategoryPhysical, "점심 식사 후 산책함", db.GradeAverage, true},
		{"cognitive via model", CategoryCognitive, "회상 대화에 참여함", db.GradeImprove, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ProcessDailyNoteEvaluation(ctx, 1, tt.category, tt.text)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantGrade, got.Grade)
			assert.Equal(t, tt.wantEval, got.Evaluation != nil)

			stored := svc.EvaluationFromDB(1, tt.category)
			assert.Equal(t, tt.wantGrade, stored.Grade)
		})
	}

	_, err := svc.ProcessDailyNoteEvaluation(ctx, 1, "OTHER", "text")
	assert.Error(t, err)
}

func TestRecordIDAndEvaluationFromDB(t *testing.T) {
	store := newFakeStore()
	store.records[7] = db.DailyRecord{RecordID: 7, Record: sampleRecord()}
	svc := NewService(store, fakeProvider{}, nil)

	id := svc.RecordID("홍길동", "2025-03-03")
	if assert.NotNil(t, id) {
		assert.Equal(t, int64(7), *id)
	}
	assert.Nil(t, svc.RecordID("없는고객", "2025-03-03"))

	assert.Equal(t, StoredEvaluation{Grade: db.GradeNone}, svc.EvaluationFromDB(7, "SPECIAL_NOTE_PHYSICAL"))

	store.evals[evalKey(7, db.CategoryCognitive)] = db.AIEvaluation{RecordID: 7, Category: db.CategoryCognitive, GradeCode: db.GradeAverage, SuggestionText: "수정 제안"}
	got := svc.EvaluationFromDB(7, "SPECIAL_NOTE_COGNITIVE")
	assert.Equal(t, "수정 제안", got.Suggestion)
	assert.Equal(t, db.GradeAverage, got.Grade)
}

func TestEvaluateRecords(t *testing.T) {
	store := newFakeStore()
	absent := sampleRecord()
	absent.TotalServiceTime = records.AbsenceAbsent
	store.records[1] = db.DailyRecord{RecordID: 1, Record: sampleRecord()}
	store.records[2] = db.DailyRecord{RecordID: 2, Record: sampleRecord()}
	store.records[3] = db.DailyRecord{RecordID: 3, Record: absent}

	client := &fakeClient{response: sampleResponse}
	svc := NewService(store, fakeProvider{client: client}, nil)

	result, err := svc.EvaluateRecords(context.Background(), []int64{1, 2, 3, 99}, 2)
	assert.NoError(t, err)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, result.Evaluated)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Failures, int64(99))
	assert.Equal(t, 2, client.calls)

	assert.Equal(t, db.GradeAverage, svc.EvaluationFromDB(2, "NURSING").Grade)
}

func TestEvaluateRecordsCancelled(t *testing.T) {
	store := newFakeStore()
	store.records[1] = db.DailyRecord{RecordID: 1, Record: sampleRecord()}
	svc := NewService(store, fakeProvider{client: &fakeClient{response: sampleResponse}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.EvaluateRecords(ctx, []int64{1}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
