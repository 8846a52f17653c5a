package records

import (
	"math"
	"strconv"
	"strings"
)

const (
	CategoryBasic     = "기본정보"
	CategoryPhysical  = "신체활동지원"
	CategoryCognitive = "인지관리"
	CategoryNursing   = "건강및간호관리"
	CategoryRecovery  = "기능회복훈련"
)

// Categories lists the required-item categories in display order.
var Categories = []string{CategoryBasic, CategoryPhysical, CategoryCognitive, CategoryNursing, CategoryRecovery}

// ItemCheck is one required item. Done is nil when the item does not apply.
type ItemCheck struct {
	Name string `json:"name"`
	Done *bool  `json:"done"`
}

type CategoryCheck struct {
	Category string      `json:"category"`
	Items    []ItemCheck `json:"items"`
}

// RequiredCheck holds the required-item results of one record.
type RequiredCheck struct {
	Date       string          `json:"date"`
	Absent     bool            `json:"absent"`
	Categories []CategoryCheck `json:"categories"`
}

// Category returns the check for the named category.
func (c RequiredCheck) Category(name string) (CategoryCheck, bool) {
	for _, cat := range c.Categories {
		if cat.Category == name {
			return cat, true
		}
	}
	return CategoryCheck{}, false
}

type itemSpec struct {
	name  string
	value func(Record) string
	// applies reports whether the item is required for the record. nil means always.
	applies func(Record) bool
}

var requiredItems = map[string][]itemSpec{
	CategoryBasic: {
		{name: "총시간", value: func(r Record) string { return r.TotalServiceTime }},
		{name: "시작시간", value: func(r Record) string { return r.StartTime }},
		{name: "종료시간", value: func(r Record) string { return r.EndTime }},
		{name: "이동서비스", value: func(r Record) string { return r.TransportService }},
	},
	CategoryPhysical: {
		{name: "청결", value: func(r Record) string { return r.HygieneCare }},
		{name: "점심", value: func(r Record) string { return r.MealLunch }},
		{name: "저녁", value: func(r Record) string { return r.MealDinner }, applies: func(r Record) bool { return EndsInEvening(r.EndTime) }},
		{name: "화장실", value: func(r Record) string { return r.ToiletCare }},
		{name: "이동도움", value: func(r Record) string { return r.MobilityCare }},
		{name: "특이사항", value: func(r Record) string { return r.PhysicalNote }},
	},
	CategoryCognitive: {
		{name: "인지관리", value: func(r Record) string { return r.CogSupport }},
		{name: "의사소통", value: func(r Record) string { return r.CommSupport }},
		{name: "특이사항", value: func(r Record) string { return r.CognitiveNote }},
	},
	CategoryNursing: {
		{name: "혈압/체온", value: func(r Record) string { return r.BPTemp }},
		{name: "건강관리", value: func(r Record) string { return r.HealthManage }},
		{name: "특이사항", value: func(r Record) string { return r.NursingNote }},
	},
	CategoryRecovery: {
		{name: "기본동작훈련", value: func(r Record) string { return r.ProgBasic }},
		{name: "일상생활훈련", value: func(r Record) string { return r.ProgActivity }},
		{name: "인지활동프로그램", value: func(r Record) string { return r.ProgCognitive }},
		{name: "인지기능향상", value: func(r Record) string { return r.ProgTherapy }},
		{name: "특이사항", value: func(r Record) string { return r.FunctionalNote }},
	},
}

// EndsInEvening reports whether an HH:MM end time is at or after 17:10, when dinner is served.
func EndsInEvening(endTime string) bool {
	parts := strings.Split(strings.TrimSpace(endTime), ":")
	if len(parts) < 2 {
		return false
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return false
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return false
	}
	return hour > 17 || (hour == 17 && minute >= 10)
}

// CheckRequiredItems checks the mandatory fields of every record.
func CheckRequiredItems(recs []Record) []RequiredCheck {
	results := make([]RequiredCheck, 0, len(recs))
	for _, r := range recs {
		absent := r.IsAbsent()
		check := RequiredCheck{Date: r.Date, Absent: absent}
		for _, category := range Categories {
			cat := CategoryCheck{Category: category}
			for _, spec := range requiredItems[category] {
				item := ItemCheck{Name: spec.name}
				if !absent && (spec.applies == nil || spec.applies(r)) {
					done := spec.value(r) != ""
					item.Done = &done
				}
				cat.Items = append(cat.Items, item)
			}
			check.Categories = append(check.Categories, cat)
		}
		results = append(results, check)
	}
	return results
}

// CompletionRate returns the percentage of completed items in category, rounded to one decimal,
// together with the completed and required counts. Items that do not apply are skipped.
func CompletionRate(checks []RequiredCheck, category string) (float64, int, int) {
	completed, required := 0, 0
	for _, check := range checks {
		cat, ok := check.Category(category)
		if !ok {
			continue
		}
		for _, item := range cat.Items {
			if item.Done == nil {
				continue
			}
			required++
			if *item.Done {
				completed++
			}
		}
	}
	if required == 0 {
		return 0, 0, 0
	}
	percent := float64(completed) / float64(required) * 100
	return math.Round(percent*10) / 10, completed, required
}
