package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ameistad/carenote/internal/db"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	mu          sync.Mutex
	employee    []db.EmployeeEvaluation
	ai          []db.AIEvaluation
	users       []db.User
	prevMonth   int
	err         error
	countRanges [][2]string
}

func (f *fakeStore) ListEmployeeEvaluationsInRange(start, end string) ([]db.EmployeeEvaluation, error) {
	var out []db.EmployeeEvaluation
	for _, e := range f.employee {
		if e.EvaluationDate >= start && e.EvaluationDate <= end {
			out = append(out, e)
		}
	}
	return out, f.err
}

func (f *fakeStore) ListAIEvaluationsInRange(start, end string) ([]db.AIEvaluation, error) {
	return f.ai, nil
}

func (f *fakeStore) ActiveUsers() ([]db.User, error) {
	return f.users, nil
}

func (f *fakeStore) CountEmployeeEvaluations(start, end string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countRanges = append(f.countRanges, [2]string{start, end})
	return f.prevMonth, nil
}

func eval(user, date, category, evalType string) db.EmployeeEvaluation {
	return db.EmployeeEvaluation{TargetUserName: user, EvaluationDate: date, Category: category, EvaluationType: evalType, Score: 1}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		employee: []db.EmployeeEvaluation{
			eval("김요양", "2025-03-03", db.CategoryPhysical, db.EvalTypeMissing),
			eval("김요양", "2025-03-03", db.CategoryPhysical, db.EvalTypeMissing),
			eval("김요양", "2025-03-04", db.CategoryPhysical, db.EvalTypeMissing),
			eval("김요양", "2025-03-05", db.CategoryCognitive, db.EvalTypeTypo),
			eval("김요양", "2025-03-05", db.CategoryCognitive, db.EvalTypeTypo),
			eval("박간호", "2025-03-04", db.CategoryNursing, db.EvalTypeInsufficient),
		},
		ai: []db.AIEvaluation{
			{GradeCode: db.GradeExcellent},
			{GradeCode: db.GradeAverage},
			{GradeCode: db.GradeAverage},
			{GradeCode: db.GradePoor},
		},
		users:     []db.User{{Name: "김요양"}, {Name: "박간호"}, {Name: "이신입"}},
		prevMonth: 7,
	}
}

func TestBuild_AllUsers(t *testing.T) {
	store := newFakeStore()
	dash, err := Build(context.Background(), store, Filter{Start: "2025-03-03", End: "2025-03-05", UserName: AllUsers})
	if !assert.NoError(t, err) {
		return
	}

	assert.Equal(t, KPIs{
		TotalIssues:         6,
		TopType:             db.EvalTypeMissing,
		TopTypeCount:        3,
		HighRiskEmployees:   1,
		PrevMonthCount:      7,
		ChangeFromPrevMonth: -1,
	}, dash.KPIs)
	assert.Equal(t, 2, dash.TotalEmployees)
	assert.Equal(t, [][2]string{{"2025-02-01", "2025-03-02"}}, store.countRanges)

	if assert.Len(t, dash.DailyTrend, 3) {
		assert.Equal(t, "2025-03-03", dash.DailyTrend[0].Date)
		assert.Equal(t, 2, dash.DailyTrend[0].Counts[db.EvalTypeMissing])
		assert.Equal(t, 0, dash.DailyTrend[0].Counts[db.EvalTypeGrammar])
		assert.Len(t, dash.DailyTrend[2].Counts, len(db.EvalTypes))
	}

	assert.Equal(t, []Count{
		{Key: db.GradeExcellent, Count: 1},
		{Key: db.GradeAverage, Count: 2},
		{Key: db.GradeImprove, Count: 0},
		{Key: db.GradePoor, Count: 1},
	}, dash.GradeDistribution)

	assert.Equal(t, []Count{
		{Key: db.CategoryPhysical, Count: 3},
		{Key: db.CategoryCognitive, Count: 2},
		{Key: db.CategoryNursing, Count: 1},
	}, dash.CategoryCounts)

	assert.Equal(t, []EmployeeRank{
		{Rank: 1, Name: "김요양", Count: 5, TopType: db.EvalTypeMissing},
		{Rank: 2, Name: "박간호", Count: 1, TopType: db.EvalTypeInsufficient},
	}, dash.Ranking)
	assert.Equal(t, []string{"김요양", "박간호", "이신입"}, dash.ActiveUsers)
	assert.Nil(t, dash.Individual)
}

func TestBuild_Individual(t *testing.T) {
	dash, err := Build(context.Background(), newFakeStore(), Filter{Start: "2025-03-03", End: "2025-03-05", UserName: "김요양"})
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, 5, dash.KPIs.TotalIssues)
	assert.Len(t, dash.Ranking, 2, "the ranking always covers everyone")

	report := dash.Individual
	if !assert.NotNil(t, report) {
		return
	}
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, db.EvalTypeMissing, report.TopType)
	assert.Equal(t, db.CategoryPhysical, report.TopCategory)
	assert.Equal(t, Count{Key: db.EvalTypeTypo, Count: 2}, report.TypeCounts[2])
	assert.Equal(t, []WeekCount{
		{Week: "2025-W07", Count: 0},
		{Week: "2025-W08", Count: 0},
		{Week: "2025-W09", Count: 0},
		{Week: "2025-W10", Count: 5},
	}, report.Weekly)
	assert.Equal(t, "2025-03-05", report.History[0].EvaluationDate)
}

func TestBuild_NoData(t *testing.T) {
	dash, err := Build(context.Background(), &fakeStore{}, Filter{Start: "2025-03-01", End: "2025-03-01", UserName: "없는사람"})
	assert.NoError(t, err)
	assert.Equal(t, "N/A", dash.KPIs.TopType)
	assert.Equal(t, 0, dash.KPIs.TotalIssues)
	assert.Empty(t, dash.Ranking)
	assert.Equal(t, "N/A", dash.Individual.TopCategory)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		store   *fakeStore
		wantErr error
	}{
		{"bad start", Filter{Start: "03-01", End: "2025-03-05"}, newFakeStore(), ErrInvalidRange},
		{"end before start", Filter{Start: "2025-03-05", End: "2025-03-01"}, newFakeStore(), ErrInvalidRange},
		{"store failure", Filter{Start: "2025-03-01", End: "2025-03-05"}, &fakeStore{err: errors.New("disk I/O error")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(context.Background(), tt.store, tt.filter)
			if !assert.Error(t, err) {
				return
			}
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func TestBuild_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, newFakeStore(), Filter{Start: "2025-03-01", End: "2025-03-05"})
	assert.ErrorIs(t, err, context.Canceled)
}
