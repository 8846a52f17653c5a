package weekly

import (
	"fmt"
	"math"
	"strings"
)

// Pair holds a value for last week and this week.
type Pair[T any] struct {
	Last T `json:"last"`
	This T `json:"this"`
}

// HeaderMetric is a per-attendance ratio compared between the two weeks.
type HeaderMetric struct {
	Label       string   `json:"label"`
	Prev        *float64 `json:"prev"`
	Curr        *float64 `json:"curr"`
	ChangeLabel string   `json:"change_label"`
	Percent     *float64 `json:"percent"`
}

type Header struct {
	MealAmount HeaderMetric `json:"meal_amount"`
	Toilet     HeaderMetric `json:"toilet"`
}

// Day is the meal and toilet reading of one record.
type Day struct {
	Date            string   `json:"date"`
	MealType        string   `json:"meal_type"`
	MealAmountScore float64  `json:"meal_amount_score"`
	MealDetail      string   `json:"meal_detail"`
	ToiletCount     *float64 `json:"toilet_count"`
}

type TableRow struct {
	Week       string `json:"주간"`
	Attendance int    `json:"출석일"`
	General    string `json:"식사량(일반식)"`
	Porridge   string `json:"식사량(죽식)"`
	Minced     string `json:"식사량(다진식)"`
	Urine      string `json:"소변"`
	Stool      string `json:"대변"`
	Diaper     string `json:"기저귀교환"`
}

type CategoryNotes struct {
	Label   string   `json:"label"`
	Entries []string `json:"entries"`
}

// WeekSummary is one week's material for the report writer.
type WeekSummary struct {
	Physical   string             `json:"physical"`
	Cognitive  string             `json:"cognitive"`
	Nursing    string             `json:"nursing"`
	Functional string             `json:"functional"`
	Attendance int                `json:"attendance"`
	Meals      map[string]float64 `json:"meals"`
	Toilet     map[string]float64 `json:"toilet"`
}

type PerAttendance struct {
	MealAvgPrev          *float64 `json:"meal_avg_prev"`
	MealAvgCurr          *float64 `json:"meal_avg_curr"`
	MealAvgChangeLabel   string   `json:"meal_avg_change_label"`
	MealAvgPercent       *float64 `json:"meal_avg_percent"`
	ToiletAvgPrev        *float64 `json:"toilet_avg_prev"`
	ToiletAvgCurr        *float64 `json:"toilet_avg_curr"`
	ToiletAvgChangeLabel string   `json:"toilet_avg_change_label"`
	ToiletAvgPercent     *float64 `json:"toilet_avg_percent"`
}

// Changes are this week's totals minus last week's.
type Changes struct {
	Meal            string            `json:"meal"`
	Toilet          string            `json:"toilet"`
	ToiletBreakdown map[string]string `json:"toilet_breakdown"`
}

// AIPayload is everything the report writer gets to see.
type AIPayload struct {
	CurrentWeek          WeekSummary   `json:"current_week"`
	PreviousWeek         WeekSummary   `json:"previous_week"`
	PerAttendance        PerAttendance `json:"per_attendance"`
	Changes              Changes       `json:"changes"`
	PreviousWeeklyReport string        `json:"previous_weekly_report"`
}

// Trend is the detailed two-week comparison shown next to the scores.
type Trend struct {
	Header        Header                   `json:"header"`
	Notes         Pair[[]string]           `json:"notes"`
	MealDetail    Pair[string]             `json:"meal_detail"`
	ToiletDetail  Pair[string]             `json:"toilet_detail"`
	Days          []Day                    `json:"days"`
	WeeklyTable   []TableRow               `json:"weekly_table"`
	CategoryNotes map[string]CategoryNotes `json:"category_notes"`
	AIPayload     AIPayload                `json:"ai_payload"`
}

// weekTotals is what one week adds up to.
type weekTotals struct {
	rows       []Row
	entries    map[string][]string
	attendance int
	meals      MealAmounts
	toilet     ToiletBreakdown
	mealDetail []string
}

func summarizeWeek(rows []Row, r Range) weekTotals {
	w := weekTotals{entries: map[string][]string{}}
	for _, row := range rows {
		if row.Date < r.Start || row.Date > r.End {
			continue
		}
		w.rows = append(w.rows, row)
		if row.attended() {
			w.attendance++
		}
		for _, meal := range row.meals() {
			w.meals = w.meals.add(ParseMealAmounts(meal))
		}
		if b, ok := ParseToiletBreakdown(row.ToiletCare); ok {
			w.toilet = w.toilet.add(b)
		}
		if detail := mealDetail(row); detail != "" {
			w.mealDetail = append(w.mealDetail, detail)
		}
		for _, c := range categories {
			if note := strings.TrimSpace(c.note(row)); note != "" {
				w.entries[c.key] = append(w.entries[c.key], fmt.Sprintf("[%s] %s", shortDate(row.Date), note))
			}
		}
	}
	return w
}

func (w weekTotals) summary() WeekSummary {
	return WeekSummary{
		Physical:   joinEntries(w.entries["physical"]),
		Cognitive:  joinEntries(w.entries["cognitive"]),
		Nursing:    joinEntries(w.entries["nursing"]),
		Functional: joinEntries(w.entries["functional"]),
		Attendance: w.attendance,
		Meals:      w.meals.korean(),
		Toilet:     w.toilet.korean(),
	}
}

func (w weekTotals) tableRow(label string) TableRow {
	return TableRow{
		Week:       label,
		Attendance: w.attendance,
		General:    formatTotal(w.meals.General),
		Porridge:   formatTotal(w.meals.Porridge),
		Minced:     formatTotal(w.meals.Minced),
		Urine:      formatTotal(w.toilet.Urine) + "회",
		Stool:      formatTotal(w.toilet.Stool) + "회",
		Diaper:     formatTotal(w.toilet.Diaper) + "회",
	}
}

func (w weekTotals) toiletSummary() string {
	if w.toilet.total() == 0 {
		return "-"
	}
	return fmt.Sprintf("대변%d회/소변%d회 (기저귀교환%d회)", int(w.toilet.Stool), int(w.toilet.Urine), int(w.toilet.Diaper))
}

func (w weekTotals) mealSummary() string {
	if len(w.mealDetail) == 0 {
		return "-"
	}
	return strings.Join(w.mealDetail, " / ")
}

// notes merges each day's four notes into one line, optionally marking highlight keywords.
func (w weekTotals) notes(highlight bool) []string {
	lines := []string{}
	for _, row := range w.rows {
		var parts []string
		for _, p := range []struct{ prefix, note string }{
			{"신체", row.PhysicalNote},
			{"인지", row.CognitiveNote},
			{"간호", row.NursingNote},
			{"기능", row.FunctionalNote},
		} {
			if note := strings.TrimSpace(p.note); note != "" {
				parts = append(parts, p.prefix+": "+note)
			}
		}
		if len(parts) == 0 {
			continue
		}
		line := fmt.Sprintf("[%s] %s", shortDate(row.Date), strings.Join(parts, " / "))
		if highlight {
			line = Highlight(line)
		}
		lines = append(lines, line)
	}
	return lines
}

func analyzeTrend(rows []Row, prev, curr Range, previousReport string) *Trend {
	last := summarizeWeek(rows, prev)
	this := summarizeWeek(rows, curr)

	mealPrev := ratio(last.meals.total(), last.attendance)
	mealCurr := ratio(this.meals.total(), this.attendance)
	toiletPrev := ratio(last.toilet.total(), last.attendance)
	toiletCurr := ratio(this.toilet.total(), this.attendance)
	mealPercent := percentChange(mealPrev, mealCurr)
	toiletPercent := percentChange(toiletPrev, toiletCurr)

	categoryNotes := map[string]CategoryNotes{}
	for _, c := range categories {
		entries := this.entries[c.key]
		if entries == nil {
			entries = []string{}
		}
		categoryNotes[c.key] = CategoryNotes{Label: c.label, Entries: entries}
	}

	days := make([]Day, 0, len(rows))
	for _, row := range rows {
		days = append(days, deriveDay(row))
	}

	return &Trend{
		Header: Header{
			MealAmount: HeaderMetric{Label: "식사량", Prev: mealPrev, Curr: mealCurr, ChangeLabel: changeLabel(mealPercent), Percent: mealPercent},
			Toilet:     HeaderMetric{Label: "배설", Prev: toiletPrev, Curr: toiletCurr, ChangeLabel: changeLabel(toiletPercent), Percent: toiletPercent},
		},
		Notes:         Pair[[]string]{Last: last.notes(false), This: this.notes(true)},
		MealDetail:    Pair[string]{Last: last.mealSummary(), This: this.mealSummary()},
		ToiletDetail:  Pair[string]{Last: last.toiletSummary(), This: this.toiletSummary()},
		Days:          days,
		WeeklyTable:   []TableRow{last.tableRow("저번주"), this.tableRow("이번주")},
		CategoryNotes: categoryNotes,
		AIPayload: AIPayload{
			CurrentWeek:  this.summary(),
			PreviousWeek: last.summary(),
			PerAttendance: PerAttendance{
				MealAvgPrev:          mealPrev,
				MealAvgCurr:          mealCurr,
				MealAvgChangeLabel:   changeLabel(mealPercent),
				MealAvgPercent:       mealPercent,
				ToiletAvgPrev:        toiletPrev,
				ToiletAvgCurr:        toiletCurr,
				ToiletAvgChangeLabel: changeLabel(toiletPercent),
				ToiletAvgPercent:     toiletPercent,
			},
			Changes: Changes{
				Meal:   formatTotal(this.meals.total() - last.meals.total()),
				Toilet: formatTotal(this.toilet.total() - last.toilet.total()),
				ToiletBreakdown: map[string]string{
					"소변":    formatTotal(this.toilet.Urine - last.toilet.Urine),
					"대변":    formatTotal(this.toilet.Stool - last.toilet.Stool),
					"기저귀교환": formatTotal(this.toilet.Diaper - last.toilet.Diaper),
				},
			},
			PreviousWeeklyReport: SafeText(previousReport),
		},
	}
}

func deriveDay(row Row) Day {
	day := Day{Date: row.Date, MealType: unknownMealType, MealDetail: mealDetail(row)}
	var scores []float64
	for _, meal := range row.meals() {
		if t := DetectMealType(meal); t != "" && day.MealType == unknownMealType {
			day.MealType = t
		}
		if hasMeal(meal) {
			scores = append(scores, ScoreMealAmount(meal))
		}
	}
	if len(scores) > 0 {
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		day.MealAmountScore = math.Round(sum/float64(len(scores))*100) / 100
	}
	if count, ok := ExtractToiletCount(row.ToiletCare); ok {
		day.ToiletCount = &count
	}
	return day
}

// hasMeal is false for blank cells and the "-" placeholder.
func hasMeal(text string) bool {
	text = strings.TrimSpace(text)
	return text != "" && text != "-"
}

// mealDetail describes the day's meals as "type (amount)" joined by " / ".
func mealDetail(row Row) string {
	var parts []string
	for _, meal := range row.meals() {
		if !hasMeal(meal) {
			continue
		}
		mealType := DetectMealType(meal)
		if mealType == "" {
			mealType = unknownMealType
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", mealType, MealAmountLabel(meal)))
	}
	return strings.Join(parts, " / ")
}

func joinEntries(entries []string) string {
	if len(entries) == 0 {
		return "없음"
	}
	return strings.Join(entries, "\n")
}

// shortDate turns YYYY-MM-DD into MM-DD.
func shortDate(date string) string {
	if len(date) == len(dateLayout) {
		return date[5:]
	}
	return date
}

func ratio(total float64, count int) *float64 {
	if count <= 0 {
		return nil
	}
	v := total / float64(count)
	return &v
}

func percentChange(prev, curr *float64) *float64 {
	if prev == nil || *prev == 0 || curr == nil {
		return nil
	}
	v := round1((*curr - *prev) / *prev * 100)
	return &v
}

func changeLabel(percent *float64) string {
	switch {
	case percent == nil:
		return noDataText
	case *percent > 0:
		return fmt.Sprintf("%.1f%% %s", *percent, TrendUp)
	case *percent < 0:
		return fmt.Sprintf("%.1f%% %s", -*percent, TrendDown)
	default:
		return TrendFlat
	}
}
