package db

import (
	"errors"
	"testing"

	"github.com/ameistad/carenote/internal/records"
	"github.com/ameistad/carenote/internal/secrets"
	"github.com/stretchr/testify/assert"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func sampleRecord(date string) records.Record {
	r := records.NewRecord(date)
	r.CustomerName = "홍길동"
	r.CustomerBirthDate = "1940-01-02"
	r.CustomerGrade = "3등급"
	r.CustomerRecognitionNo = "L1234567890"
	r.StartTime = "09:00"
	r.EndTime = "17:30"
	r.TotalServiceTime = "510분"
	r.MealLunch = "일반식 전량"
	r.PhysicalNote = "보행 시 부축하여 이동함"
	r.CognitiveNote = "회상 대화에 적극 참여함"
	r.WriterPhy = "김요양"
	return r
}

func TestMigrateIsIdempotent(t *testing.T) {
	database := newTestDB(t)
	assert.NoError(t, database.Migrate())
}

func TestCustomers(t *testing.T) {
	database := newTestDB(t)

	id, err := database.CreateCustomer(Customer{Name: "홍길동", BirthDate: "1940-01-02", RecognitionNo: "L111"})
	assert.NoError(t, err)
	_, err = database.CreateCustomer(Customer{Name: "김철수", RecognitionNo: "L222"})
	assert.NoError(t, err)

	_, err = database.CreateCustomer(Customer{})
	assert.Error(t, err)

	all, err := database.ListCustomers("")
	assert.NoError(t, err)
	if assert.Len(t, all, 2) {
		assert.Equal(t, "김철수", all[0].Name, "newest first")
	}

	filtered, err := database.ListCustomers("L11")
	assert.NoError(t, err)
	assert.Len(t, filtered, 1)

	c, err := database.GetCustomer(id)
	assert.NoError(t, err)
	assert.Equal(t, "1940-01-02", c.BirthDate)

	c.Grade = "2등급"
	n, err := database.UpdateCustomer(c)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = database.GetCustomer(9999)
	assert.True(t, errors.Is(err, ErrNotFound))

	n, err = database.DeleteCustomer(id)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestResolveCustomerID(t *testing.T) {
	database := newTestDB(t)

	first, _ := database.CreateCustomer(Customer{Name: "홍길동", BirthDate: "1940-01-02"})
	second, _ := database.CreateCustomer(Customer{Name: "홍길동", BirthDate: "1941-05-06", RecognitionNo: "L999"})

	tests := []struct {
		name          string
		customerName  string
		birthDate     string
		recognitionNo string
		want          int64
		wantErr       error
	}{
		{"recognition number wins", "다른이름", "", "L999", second, nil},
		{"name and birth date", "홍길동", "1940-01-02", "", first, nil},
		{"name only returns newest", "홍길동", "", "", second, nil},
		{"unknown", "없는사람", "", "", 0, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := database.ResolveCustomerID(tt.customerName, tt.birthDate, tt.recognitionNo)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaveParsedRecords(t *testing.T) {
	database := newTestDB(t)

	recs := []records.Record{sampleRecord("2025-03-03"), sampleRecord("2025-03-04")}
	saved, err := database.SaveParsedRecords(recs)
	assert.NoError(t, err)
	assert.Equal(t, 2, saved)

	// saving the same day again replaces it
	updated := sampleRecord("2025-03-04")
	updated.PhysicalNote = "수정된 특이사항"
	saved, err = database.SaveParsedRecords([]records.Record{updated})
	assert.NoError(t, err)
	assert.Equal(t, 1, saved)

	customers, err := database.ListCustomers("")
	assert.NoError(t, err)
	if !assert.Len(t, customers, 1) {
		return
	}
	customerID := customers[0].ID

	stored, err := database.GetCustomerRecords(customerID, "", "")
	assert.NoError(t, err)
	if assert.Len(t, stored, 2) {
		assert.Equal(t, "2025-03-04", stored[0].Date)
		assert.Equal(t, "수정된 특이사항", stored[0].PhysicalNote)
		assert.Equal(t, "일반식 전량", stored[0].MealLunch)
		assert.Equal(t, "홍길동", stored[0].CustomerName)
	}

	ranged, err := database.GetCustomerRecords(customerID, "2025-03-03", "2025-03-03")
	assert.NoError(t, err)
	assert.Len(t, ranged, 1)

	recordID, err := database.RecordIDByCustomerNameAndDate("홍길동", "2025-03-03")
	assert.NoError(t, err)
	existing, err := database.FindExistingRecordID(customerID, "2025-03-03")
	assert.NoError(t, err)
	assert.Equal(t, recordID, existing)

	counts, err := database.GetCustomersWithRecords("2025-03-01", "2025-03-31")
	assert.NoError(t, err)
	if assert.Len(t, counts, 1) {
		assert.Equal(t, 2, counts[0].RecordCount)
	}

	assert.NoError(t, database.DeleteDailyRecord(recordID))
	_, err = database.GetRecord(recordID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsers(t *testing.T) {
	database := newTestDB(t)

	id, err := database.CreateUser(User{Username: "kim", Name: "김요양", JobType: "요양보호사"}, "secret")
	assert.NoError(t, err)
	_, err = database.CreateUser(User{Username: "lee", Name: "이간호", JobType: "간호사"}, "secret")
	assert.NoError(t, err)

	u, err := database.GetUser(id)
	assert.NoError(t, err)
	assert.Equal(t, RoleEmployee, u.Role)
	assert.Equal(t, WorkStatusActive, u.WorkStatus)

	_, err = database.AuthenticateUser("kim", "secret")
	assert.NoError(t, err)
	_, err = database.AuthenticateUser("kim", "wrong")
	assert.ErrorIs(t, err, ErrNotFound)

	found, err := database.ListUsers("간호", "")
	assert.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = database.SoftDeleteUser(id)
	assert.NoError(t, err)

	active, err := database.ActiveUsers()
	assert.NoError(t, err)
	assert.Len(t, active, 1)

	everyone, err := database.ListUsers("", WorkStatusAll)
	assert.NoError(t, err)
	assert.Len(t, everyone, 2)

	resigned, err := database.GetUser(id)
	assert.NoError(t, err)
	assert.Equal(t, WorkStatusResigned, resigned.WorkStatus)
	assert.NotEmpty(t, resigned.ResignationDate)

	userID, err := database.UserIDByName("이간호")
	assert.NoError(t, err)
	assert.NotZero(t, userID)
}

func TestWeeklyStatus(t *testing.T) {
	database := newTestDB(t)
	customerID, _ := database.CreateCustomer(Customer{Name: "홍길동"})

	_, err := database.LoadWeeklyStatus(customerID, "2025-03-03", "2025-03-09", WeeklyKindReport)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, database.SaveWeeklyStatus(customerID, "2025-03-03", "2025-03-09", WeeklyKindReport, "first"))
	assert.NoError(t, database.SaveWeeklyStatus(customerID, "2025-03-03", "2025-03-09", WeeklyKindReport, "second"))
	assert.NoError(t, database.SaveWeeklyStatus(customerID, "2025-03-03", "2025-03-09", WeeklyKindAnalysis, `{"a":1}`))
	assert.NoError(t, database.SaveWeeklyStatus(customerID, "2025-03-10", "2025-03-16", WeeklyKindReport, "third"))

	text, err := database.LoadWeeklyStatus(customerID, "2025-03-03", "2025-03-09", WeeklyKindReport)
	assert.NoError(t, err)
	assert.Equal(t, "second", text)

	reports, err := database.ListWeeklyStatus(customerID, WeeklyKindReport, 0)
	assert.NoError(t, err)
	if assert.Len(t, reports, 2) {
		assert.Equal(t, "2025-03-10", reports[0].StartDate)
	}

	n, err := database.DeleteWeeklyStatus(customerID, "2025-03-03", "2025-03-09", WeeklyKindAnalysis)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAIEvaluations(t *testing.T) {
	database := newTestDB(t)
	_, err := database.SaveParsedRecords([]records.Record{sampleRecord("2025-03-03")})
	assert.NoError(t, err)
	recordID, _ := database.RecordIDByCustomerNameAndDate("홍길동", "2025-03-03")
	customerID, _ := database.ResolveCustomerID("홍길동", "", "")

	_, err = database.SaveAIEvaluation(AIEvaluation{RecordID: recordID, Category: "PHYSICAL", OERFidelity: "O", SpecificityScore: "O", GrammarScore: "X", GradeCode: GradeAverage})
	assert.NoError(t, err)
	// upsert on the same record and category
	_, err = database.SaveAIEvaluation(AIEvaluation{RecordID: recordID, Category: "SPECIAL_NOTE_PHYSICAL", OERFidelity: "O", SpecificityScore: "O", GrammarScore: "O", GradeCode: GradeExcellent})
	assert.NoError(t, err)
	_, err = database.SaveAIEvaluation(AIEvaluation{RecordID: recordID, Category: "COGNITIVE", OERFidelity: "X", SpecificityScore: "O", GrammarScore: "X", GradeCode: GradeImprove})
	assert.NoError(t, err)

	list, err := database.ListAIEvaluationsByRecord(recordID)
	assert.NoError(t, err)
	assert.Len(t, list, 2)

	physical, err := database.GetAIEvaluation(recordID, "PHYSICAL")
	assert.NoError(t, err)
	assert.Equal(t, CategoryPhysical, physical.Category)
	assert.Equal(t, GradeExcellent, physical.GradeCode)

	byCustomer, err := database.ListAIEvaluationsByCustomer(customerID)
	assert.NoError(t, err)
	if assert.Len(t, byCustomer, 2) {
		assert.Equal(t, "2025-03-03", byCustomer[0].Date)
	}

	inRange, err := database.ListAIEvaluationsInRange("2025-03-01", "2025-03-31")
	assert.NoError(t, err)
	assert.Len(t, inRange, 2)

	stats, err := database.AIEvaluationStats(customerID, "", "")
	assert.NoError(t, err)
	byCategory := map[string]AIEvaluationStat{}
	for _, s := range stats {
		byCategory[s.Category] = s
	}
	assert.Equal(t, 1, byCategory[CategoryPhysical].Excellent)
	assert.Equal(t, 1.0, byCategory[CategoryPhysical].GrammarRatio)
	assert.Equal(t, 0.0, byCategory[CategoryCognitive].OERRatio)
	assert.Equal(t, 1, byCategory[CategoryCognitive].Improve)

	n, err := database.DeleteAIEvaluation(physical.ID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestImportRecordsKeepsEvaluations(t *testing.T) {
	database := newTestDB(t)
	first := sampleRecord("2025-03-03")
	_, err := database.SaveParsedRecords([]records.Record{first})
	assert.NoError(t, err)
	oldID, _ := database.RecordIDByCustomerNameAndDate("홍길동", "2025-03-03")
	target, _ := database.CreateUser(User{Username: "kim", Name: "김요양"}, "pw")

	_, err = database.SaveEmployeeEvaluation(EmployeeEvaluation{
		RecordID:       oldID,
		TargetDate:     "2025-03-03",
		TargetUserID:   &target,
		Category:       CategoryPhysical,
		EvaluationType: EvalTypeMissing,
		EvaluationDate: "2025-03-05",
	})
	assert.NoError(t, err)
	_, err = database.SaveAIEvaluation(AIEvaluation{RecordID: oldID, Category: "PHYSICAL", GradeCode: GradeAverage, OriginalText: first.PhysicalNote})
	assert.NoError(t, err)
	_, err = database.SaveAIEvaluation(AIEvaluation{RecordID: oldID, Category: "COGNITIVE", GradeCode: GradeImprove, OriginalText: first.CognitiveNote})
	assert.NoError(t, err)

	// the cognitive note changes, the physical note does not
	reupload := sampleRecord("2025-03-03")
	reupload.CognitiveNote = "노래 교실에 참여하여 즐거워함"
	result, err := database.ImportRecords([]records.Record{reupload})
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, ImportResult{Saved: 1, Replaced: 1, KeptEvaluations: 2, DroppedAIEvaluations: 1}, result)

	newID, err := database.RecordIDByCustomerNameAndDate("홍길동", "2025-03-03")
	assert.NoError(t, err)
	assert.NotEqual(t, oldID, newID)

	byRecord, err := database.ListEmployeeEvaluationsByRecord(newID)
	assert.NoError(t, err)
	if assert.Len(t, byRecord, 1) {
		assert.Equal(t, "김요양", byRecord[0].TargetUserName)
	}

	aiEvals, err := database.ListAIEvaluationsByRecord(newID)
	assert.NoError(t, err)
	if assert.Len(t, aiEvals, 1) {
		assert.Equal(t, CategoryPhysical, aiEvals[0].Category)
	}

	_, err = database.GetRecord(oldID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKoreanCategory(t *testing.T) {
	tests := map[string]string{
		"PHYSICAL":               CategoryPhysical,
		"SPECIAL_NOTE_PHYSICAL":  CategoryPhysical,
		"cognitive":              CategoryCognitive,
		"SPECIAL_NOTE_COGNITIVE": CategoryCognitive,
		"NURSING":                CategoryNursing,
		"RECOVERY":               CategoryRecovery,
		"기타":                     "기타",
	}
	for in, want := range tests {
		if got := KoreanCategory(in); got != want {
			t.Errorf("KoreanCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmployeeEvaluations(t *testing.T) {
	database := newTestDB(t)
	_, err := database.SaveParsedRecords([]records.Record{sampleRecord("2025-03-03")})
	assert.NoError(t, err)
	recordID, _ := database.RecordIDByCustomerNameAndDate("홍길동", "2025-03-03")
	target, _ := database.CreateUser(User{Username: "kim", Name: "김요양"}, "pw")
	evaluator, _ := database.CreateUser(User{Username: "boss", Name: "박센터장", Role: RoleAdmin}, "pw")

	id, err := database.SaveEmployeeEvaluation(EmployeeEvaluation{
		RecordID:        recordID,
		TargetDate:      "2025-03-03",
		TargetUserID:    &target,
		EvaluatorUserID: &evaluator,
		Category:        CategoryPhysical,
		EvaluationType:  EvalTypeMissing,
		EvaluationDate:  "2025-03-05",
	})
	assert.NoError(t, err)

	e, err := database.GetEmployeeEvaluation(id)
	assert.NoError(t, err)
	assert.Equal(t, 1, e.Score)
	assert.Equal(t, "김요양", e.TargetUserName)
	assert.Equal(t, "박센터장", e.EvaluatorUserName)
	assert.False(t, e.CreatedAt.IsZero())

	existing, err := database.FindExistingEmployeeEvaluation(recordID, target, CategoryPhysical, EvalTypeMissing)
	assert.NoError(t, err)
	assert.Equal(t, id, existing)

	e.Comment = "저녁 식사 누락"
	e.Score = 2
	_, err = database.UpdateEmployeeEvaluation(e)
	assert.NoError(t, err)

	byRecord, err := database.ListEmployeeEvaluationsByRecord(recordID)
	assert.NoError(t, err)
	if assert.Len(t, byRecord, 1) {
		assert.Equal(t, "저녁 식사 누락", byRecord[0].Comment)
	}

	inRange, err := database.ListEmployeeEvaluationsInRange("2025-03-01", "2025-03-31")
	assert.NoError(t, err)
	assert.Len(t, inRange, 1)

	count, err := database.CountEmployeeEvaluations("2025-02-01", "2025-02-28")
	assert.NoError(t, err)
	assert.Equal(t, 0, count)

	n, err := database.DeleteEmployeeEvaluation(id)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSettings(t *testing.T) {
	identity, err := secrets.GenerateIdentity()
	assert.NoError(t, err)
	t.Setenv("CARENOTE_ENCRYPTION_KEY", identity)

	database := newTestDB(t)
	assert.Error(t, database.SetSetting("", "x"))
	assert.NoError(t, database.SetSetting("OPENAI_API_KEY", "sk-test"))
	assert.NoError(t, database.SetSetting("OPENAI_API_KEY", "sk-new"))

	value, err := database.GetSettingDecrypted("OPENAI_API_KEY")
	assert.NoError(t, err)
	assert.Equal(t, "sk-new", value)

	list, err := database.ListSettings()
	assert.NoError(t, err)
	if assert.Len(t, list, 1) {
		resp := list[0].ToAPIResponse()
		assert.Len(t, resp.DigestValue, 16)
		assert.NotContains(t, resp.DigestValue, "sk-new")
	}

	assert.NoError(t, database.DeleteSetting("OPENAI_API_KEY"))
	assert.ErrorIs(t, database.DeleteSetting("OPENAI_API_KEY"), ErrNotFound)
	_, err = database.GetSettingDecrypted("OPENAI_API_KEY")
	assert.ErrorIs(t, err, ErrNotFound)
}
