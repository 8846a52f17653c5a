package weekly

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	positiveKeywords  = []string{"개선", "안정", "호전", "유지", "활발", "양호", "미흡하지않음"}
	// 통증 is weighted twice.
	negativeKeywords  = []string{"악화", "저하", "불안", "통증", "문제", "감소", "주의", "거부", "통증"}
	highlightKeywords = []string{"통증", "거부", "증가", "감소", "악화", "호전", "불안", "주의", "사고"}

	mealTypes = []string{"일반식", "죽식", "다짐식", "경관식", "연식", "특식"}
)

type mealAmountRule struct {
	keywords []string
	score    float64
	label    string
}

// Checked in order; the first matching rule wins.
var mealAmountRules = []mealAmountRule{
	{keywords: []string{"전량", "정량", "완", "모두", "잘"}, score: 1.0, label: "전량"},
	{keywords: []string{"절반", "1/2", "반", "50%", "이하"}, score: 0.5, label: "1/2이하"},
	{keywords: []string{"거부", "못", "불가", "0%"}, score: 0.0, label: "거부"},
}

const (
	defaultMealScore = 0.75
	noMealInfo       = "정보없음"
	unknownMealType  = "미확인"
)

var (
	toiletCountPattern = regexp.MustCompile(`(\d+)\s*회`)
	digitsPattern      = regexp.MustCompile(`\d+`)
	stoolPattern       = regexp.MustCompile(`(?:대변|배변)\s*(\d+)\s*회`)
	urinePattern       = regexp.MustCompile(`(?:소변|배뇨)\s*(\d+)\s*회`)
	diaperPattern      = regexp.MustCompile(`(?:기저귀|교환)\s*(\d+)\s*회`)
)

// ScoreText scores a note between 0 and 100 from the keywords it contains, starting at 50.
func ScoreText(text string) int {
	if text == "" {
		return 50
	}
	normalized := strings.ReplaceAll(text, " ", "")
	score := 50
	for _, kw := range positiveKeywords {
		if strings.Contains(normalized, kw) {
			score += 5
		}
	}
	for _, kw := range negativeKeywords {
		if strings.Contains(normalized, kw) {
			score -= 5
		}
	}
	return max(0, min(100, score))
}

// DetectMealType returns the first meal type named in text, or "".
func DetectMealType(text string) string {
	for _, t := range mealTypes {
		if strings.Contains(text, t) {
			return t
		}
	}
	return ""
}

func matchMealRule(text string) (mealAmountRule, bool) {
	for _, rule := range mealAmountRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule, true
			}
		}
	}
	return mealAmountRule{}, false
}

// ScoreMealAmount maps a meal description to the share eaten, 0.75 when unknown.
func ScoreMealAmount(text string) float64 {
	if text == "" {
		return defaultMealScore
	}
	if rule, ok := matchMealRule(text); ok {
		return rule.score
	}
	return defaultMealScore
}

func MealAmountLabel(text string) string {
	if text == "" {
		return noMealInfo
	}
	if rule, ok := matchMealRule(text); ok {
		return rule.label
	}
	return noMealInfo
}

// ExtractToiletCount sums every "N회" in text. Without one it falls back to the first number.
func ExtractToiletCount(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	if matches := toiletCountPattern.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		total := 0.0
		for _, m := range matches {
			n, _ := strconv.Atoi(m[1])
			total += float64(n)
		}
		return total, true
	}
	if digits := digitsPattern.FindString(text); digits != "" {
		n, _ := strconv.Atoi(digits)
		return float64(n), true
	}
	return 0, false
}

// ToiletBreakdown counts the toilet events of one or more days.
type ToiletBreakdown struct {
	Stool  float64 `json:"stool"`
	Urine  float64 `json:"urine"`
	Diaper float64 `json:"diaper"`
}

func (b ToiletBreakdown) add(o ToiletBreakdown) ToiletBreakdown {
	return ToiletBreakdown{Stool: b.Stool + o.Stool, Urine: b.Urine + o.Urine, Diaper: b.Diaper + o.Diaper}
}

func (b ToiletBreakdown) total() float64 {
	return b.Stool + b.Urine + b.Diaper
}

// korean keys the breakdown the way the weekly table labels it.
func (b ToiletBreakdown) korean() map[string]float64 {
	return map[string]float64{"소변": b.Urine, "대변": b.Stool, "기저귀교환": b.Diaper}
}

// ParseToiletBreakdown reads stool, urine and diaper counts from a toilet care entry.
// It reports false for empty input.
func ParseToiletBreakdown(text string) (ToiletBreakdown, bool) {
	if text == "" {
		return ToiletBreakdown{}, false
	}
	return ToiletBreakdown{
		Stool:  sumCounts(stoolPattern, text),
		Urine:  sumCounts(urinePattern, text),
		Diaper: sumCounts(diaperPattern, text),
	}, true
}

func sumCounts(re *regexp.Regexp, text string) float64 {
	total := 0.0
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		n, _ := strconv.Atoi(m[1])
		total += float64(n)
	}
	return total
}

const (
	MealGeneral  = "일반식"
	MealPorridge = "죽식"
	MealMinced   = "다진식"
)

// MealAmounts is the number of meals eaten per meal type, counted in portions.
type MealAmounts struct {
	General  float64 `json:"general"`
	Porridge float64 `json:"porridge"`
	Minced   float64 `json:"minced"`
}

func (m MealAmounts) add(o MealAmounts) MealAmounts {
	return MealAmounts{General: m.General + o.General, Porridge: m.Porridge + o.Porridge, Minced: m.Minced + o.Minced}
}

func (m MealAmounts) total() float64 {
	return m.General + m.Porridge + m.Minced
}

func (m MealAmounts) korean() map[string]float64 {
	return map[string]float64{MealGeneral: m.General, MealPorridge: m.Porridge, MealMinced: m.Minced}
}

var mealPortions = []struct {
	keyword string
	ratio   float64
}{
	{"1/2이상", 0.75},
	{"1/2 이상", 0.75},
	{"1/2이하", 0.25},
	{"1/2 이하", 0.25},
	{"정량", 1.0},
	{"전량", 1.0},
	{"완식", 1.0},
}

// ParseMealAmounts splits a meal entry on "/" and "," and adds each segment's portion to its meal type.
// Segments without a known portion count as half a meal.
func ParseMealAmounts(text string) MealAmounts {
	var totals MealAmounts
	for _, segment := range splitMealSegments(text) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		ratio := 0.5
		for _, p := range mealPortions {
			if strings.Contains(segment, p.keyword) {
				ratio = p.ratio
				break
			}
		}
		if strings.Contains(segment, "일반식") {
			totals.General += ratio
		}
		if strings.Contains(segment, "죽식") {
			totals.Porridge += ratio
		}
		if strings.Contains(segment, "다진식") || strings.Contains(segment, "다짐식") {
			totals.Minced += ratio
		}
	}
	return totals
}

// splitMealSegments splits on "," and on "/" unless the slash sits in a fraction such as 1/2.
func splitMealSegments(text string) []string {
	runes := []rune(text)
	var segments []string
	start := 0
	for i, r := range runes {
		if r == '/' && i > 0 && i < len(runes)-1 && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
			continue
		}
		if r == '/' || r == ',' {
			segments = append(segments, string(runes[start:i]))
			start = i + 1
		}
	}
	return append(segments, string(runes[start:]))
}

// Highlight marks every highlight keyword in line as **keyword**.
func Highlight(line string) string {
	for _, kw := range highlightKeywords {
		line = strings.ReplaceAll(line, kw, "**"+kw+"**")
	}
	return line
}

func formatTotal(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return fmt.Sprintf("%.1f", v)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ToFloat parses counts such as "3회", "1.5회분" or "1,200". It reports false for "", "-", "없음"
// and anything unparsable.
func ToFloat(value string) (float64, bool) {
	text := strings.TrimSpace(value)
	switch text {
	case "", "-", "없음":
		return 0, false
	}
	for _, suffix := range []string{"회분", "회"} {
		if strings.HasSuffix(text, suffix) {
			text = strings.TrimSpace(strings.TrimSuffix(text, suffix))
			break
		}
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// TrendLabel turns a signed change into 증가, 감소 or 유지.
func TrendLabel(delta string) string {
	v, ok := ToFloat(delta)
	switch {
	case !ok:
		return "데이터 부족"
	case v > 0:
		return "증가"
	case v < 0:
		return "감소"
	default:
		return "유지"
	}
}

func SafeText(value string) string {
	if text := strings.TrimSpace(value); text != "" {
		return text
	}
	return "없음"
}
