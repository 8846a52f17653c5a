package records

import "strings"

const (
	StatusDone    = "완료"
	StatusNotDone = "미실시"

	TransportProvided    = "제공"
	TransportNotProvided = "미제공"

	AbsenceNotUsed    = "미이용"
	AbsenceAbsent     = "결석"
	AbsenceNoSchedule = "일정없음"
)

// AbsenceStatuses are the total-time values marking a day without service.
var AbsenceStatuses = []string{AbsenceNotUsed, AbsenceAbsent, AbsenceNoSchedule}

// Record is one recipient's care sheet for one day.
type Record struct {
	Date string `json:"date"`

	CustomerName          string `json:"customer_name"`
	CustomerBirthDate     string `json:"customer_birth_date,omitempty"`
	CustomerGrade         string `json:"customer_grade,omitempty"`
	CustomerRecognitionNo string `json:"customer_recognition_no,omitempty"`
	FacilityName          string `json:"facility_name,omitempty"`
	FacilityCode          string `json:"facility_code,omitempty"`

	StartTime         string `json:"start_time,omitempty"`
	EndTime           string `json:"end_time,omitempty"`
	TotalServiceTime  string `json:"total_service_time,omitempty"`
	TransportService  string `json:"transport_service,omitempty"`
	TransportVehicles string `json:"transport_vehicles,omitempty"`

	// 신체활동지원
	HygieneCare   string `json:"hygiene_care"`
	BathTime      string `json:"bath_time"`
	BathMethod    string `json:"bath_method"`
	MealBreakfast string `json:"meal_breakfast"`
	MealLunch     string `json:"meal_lunch"`
	MealDinner    string `json:"meal_dinner"`
	ToiletCare    string `json:"toilet_care"`
	MobilityCare  string `json:"mobility_care"`
	PhysicalNote  string `json:"physical_note"`
	WriterPhy     string `json:"writer_phy,omitempty"`

	// 인지관리
	CogSupport    string `json:"cog_support"`
	CommSupport   string `json:"comm_support"`
	CognitiveNote string `json:"cognitive_note"`
	WriterCog     string `json:"writer_cog,omitempty"`

	// 건강 및 간호관리
	BPTemp        string `json:"bp_temp"`
	HealthManage  string `json:"health_manage"`
	NursingManage string `json:"nursing_manage"`
	Emergency     string `json:"emergency"`
	NursingNote   string `json:"nursing_note"`
	WriterNur     string `json:"writer_nur,omitempty"`

	// 기능회복훈련
	ProgBasic         string `json:"prog_basic"`
	ProgActivity      string `json:"prog_activity"`
	ProgCognitive     string `json:"prog_cognitive"`
	ProgTherapy       string `json:"prog_therapy"`
	ProgEnhanceDetail string `json:"prog_enhance_detail"`
	FunctionalNote    string `json:"functional_note"`
	WriterFunc        string `json:"writer_func,omitempty"`
}

// NewRecord returns a record for date with the sheet defaults applied.
func NewRecord(date string) Record {
	return Record{
		Date:             date,
		TransportService: TransportNotProvided,
		HygieneCare:      StatusNotDone,
		BathTime:         "-",
		BathMethod:       "-",
		MealBreakfast:    "-",
		MealLunch:        "-",
		MealDinner:       "-",
		ToiletCare:       "-",
		MobilityCare:     StatusNotDone,
		CogSupport:       StatusNotDone,
		CommSupport:      StatusNotDone,
		BPTemp:           "-",
		HealthManage:     StatusNotDone,
		NursingManage:    StatusNotDone,
		Emergency:        StatusNotDone,
		ProgBasic:        StatusNotDone,
		ProgActivity:     StatusNotDone,
		ProgCognitive:    StatusNotDone,
		ProgTherapy:      StatusNotDone,
	}
}

// IsAbsenceStatus reports whether a total-time value marks a day without service.
func IsAbsenceStatus(totalServiceTime string) bool {
	v := strings.TrimSpace(totalServiceTime)
	for _, s := range AbsenceStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (r Record) IsAbsent() bool {
	return IsAbsenceStatus(r.TotalServiceTime)
}
