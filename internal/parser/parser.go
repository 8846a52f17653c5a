package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ameistad/carenote/internal/constants"
	"github.com/ameistad/carenote/internal/records"
	"github.com/jinzhu/copier"
)

// ErrNoTables is returned when a document has no pages to parse.
var ErrNoTables = errors.New("document contains no pages")

const (
	categoryPhysical  = "phy"
	categoryCognitive = "cog"
	categoryNursing   = "nur"
	categoryFunction  = "func"

	missingAppendixSuffix = " (⚠️별지 내용 미발견)"
	unknownCustomer       = "미상"
	bathNotAvailable      = "없음"
)

var (
	checkedSymbols = []string{"■", "Π", "V", "O", "☑"}

	groupHeaders = []string{"장기요양급여제공기록지", "노인장기요양보험법시행규칙"}

	sectionKeywords = []struct {
		category string
		labels   []string
	}{
		{categoryPhysical, []string{"신체활동지원", "신체 활동 지원", "신체활동"}},
		{categoryNursing, []string{"건강 및 간호", "간호관리", "건강관리"}},
		{categoryFunction, []string{"기능회복", "기능 회복"}},
		{categoryCognitive, []string{"인지관리", "의사소통", "인지 관리", "인지지원"}},
	}

	enhanceLabelWords = []string{"신체인지기능향상프로그램", "향상프로그램", "프로그램", "향상", "항목", "내용"}

	whitespaceRe     = regexp.MustCompile(`\s+`)
	appendixDateRe   = regexp.MustCompile(`^\d{4}[.-]\d{2}[.-]\d{2}`)
	parenthesizedRe  = regexp.MustCompile(`\(.*\)`)
	nonPlateCharRe   = regexp.MustCompile(`[^\d가-힣, ]`)
	plateRe          = regexp.MustCompile(`\d{2,3}[가-힣]\d{4}`)
	customerNameRe   = regexp.MustCompile(`수급자명\s+(\S+)`)
	birthDateRe      = regexp.MustCompile(`생년월일\s+(\d{4}\.\d{2}\.\d{2})`)
	careGradeRe      = regexp.MustCompile(`장기요양등급\s+(\S+)`)
	recognitionNoRe  = regexp.MustCompile(`장기요양인정번호\s+([A-Z0-9]+)`)
	facilityNameRe   = regexp.MustCompile(`장기요양기관명\s+(.+?)\s+장기요양기관기호`)
	facilityCodeRe   = regexp.MustCompile(`장기요양기관기호\s+([0-9A-Za-z]+)`)
	totalTimeRe      = regexp.MustCompile(`총\s*시간[:\s]*([0-9]{1,4}\s*분|미이용|결석)`)
	timeRangeRe      = regexp.MustCompile(`시작\s*시간\s*~\s*종료\s*시간[:\s]*([0-9]{1,2}:[0-9]{2})\s*[~\-]\s*([0-9]{1,2}:[0-9]{2})`)
	timeRangeLooseRe = regexp.MustCompile(`(?s)시작\s*시간[:\s]*([0-9]{1,2}:[0-9]{2}).*?종료\s*시간[:\s]*([0-9]{1,2}:[0-9]{2})`)
	transportRe      = regexp.MustCompile(`이동\s*서비스\s*제공\s*여부[^\n]*?(?:[:：]\s*|)([^\n]*)`)
	vehicleLineRe    = regexp.MustCompile(`\(차량번호\)\s*([^\n]+)`)
)

// Parser turns care record documents into daily records.
type Parser struct {
	recordYear int
	logger     *slog.Logger
}

// New returns a parser. recordYear completes sheet dates printed as month/day;
// zero selects the default year.
func New(recordYear int, logger *slog.Logger) *Parser {
	if recordYear == 0 {
		recordYear = constants.DefaultRecordYear
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{recordYear: recordYear, logger: logger}
}

// Parse parses doc with the default reference year.
func Parse(doc *Document) ([]records.Record, error) {
	return New(0, nil).Parse(doc)
}

type personalInfo struct {
	CustomerName  string
	BirthDate     string
	CareGrade     string
	RecognitionNo string
	FacilityName  string
	FacilityCode  string
}

type basicInfo struct {
	TotalServiceTime  string
	StartTime         string
	EndTime           string
	TransportService  string
	TransportVehicles string
}

// groupState collects the output of one recipient's page group.
type groupState struct {
	personal personalInfo
	basic    basicInfo
	records  []records.Record
	// appendix maps date -> category -> joined note text
	appendix map[string]map[string]string
}

func (p *Parser) Parse(doc *Document) ([]records.Record, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, ErrNoTables
	}

	var result []records.Record
	for i, group := range splitPageGroups(doc.Pages) {
		if len(group) == 0 {
			continue
		}
		state := &groupState{
			personal: parsePersonalInfo(group),
			basic:    parseBasicInfoBlock(group),
			appendix: make(map[string]map[string]string),
		}
		for _, page := range group {
			if err := p.parsePage(state, page); err != nil {
				return nil, fmt.Errorf("group %d: %w", i+1, err)
			}
		}
		mergeAppendix(state)
		p.logger.Debug("Parsed page group", "group", i+1, "pages", len(group), "records", len(state.records), "customer", state.personal.CustomerName)
		result = append(result, state.records...)
	}
	return result, nil
}

func compact(text string) string {
	return whitespaceRe.ReplaceAllString(text, "")
}

// normalizeLabel removes newlines, spaces and middle dots from a cell.
func normalizeLabel(text string) string {
	s := strings.ReplaceAll(text, "\n", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "ㆍ", "")
	return strings.ReplaceAll(s, "·", "")
}

// splitPageGroups splits a document holding several recipients' sheets into one group per recipient.
func splitPageGroups(pages []Page) [][]Page {
	var groups [][]Page
	var current []Page

	for _, page := range pages {
		normalized := compact(page.Text)
		isHeader := false
		for _, h := range groupHeaders {
			if strings.Contains(normalized, h) {
				isHeader = true
				break
			}
		}

		switch {
		case isHeader:
			if len(current) > 0 {
				groups = append(groups, current)
			}
			current = []Page{page}
		case len(current) > 0:
			current = append(current, page)
		case strings.TrimSpace(page.Text) != "":
			current = []Page{page}
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	if len(groups) == 0 {
		return [][]Page{pages}
	}
	return groups
}

func firstSubmatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func parsePersonalInfo(pages []Page) personalInfo {
	if len(pages) == 0 {
		return personalInfo{}
	}
	text := whitespaceRe.ReplaceAllString(pages[0].Text, " ")
	info := personalInfo{
		CustomerName:  firstSubmatch(customerNameRe, text),
		CareGrade:     firstSubmatch(careGradeRe, text),
		RecognitionNo: firstSubmatch(recognitionNoRe, text),
		FacilityName:  firstSubmatch(facilityNameRe, text),
		FacilityCode:  firstSubmatch(facilityCodeRe, text),
	}
	if birth := firstSubmatch(birthDateRe, text); birth != "" {
		info.BirthDate = strings.ReplaceAll(birth, ".", "-")
	}
	return info
}

// parseBasicInfoBlock reads the service summary printed above the first 신체활동지원 section.
func parseBasicInfoBlock(pages []Page) basicInfo {
	const anchor = "신체활동지원"
	var block strings.Builder
	for _, page := range pages {
		if page.Text == "" {
			continue
		}
		if before, _, found := strings.Cut(page.Text, anchor); found {
			block.WriteString(before)
			break
		}
		block.WriteString(page.Text)
		block.WriteString("\n")
	}
	text := block.String()
	if text == "" {
		return basicInfo{}
	}

	var info basicInfo
	if m := totalTimeRe.FindStringSubmatch(text); m != nil {
		info.TotalServiceTime = strings.ReplaceAll(m[1], " ", "")
	}
	m := timeRangeRe.FindStringSubmatch(text)
	if m == nil {
		m = timeRangeLooseRe.FindStringSubmatch(text)
	}
	if m != nil {
		info.StartTime, info.EndTime = m[1], m[2]
	}

	rawTransport := firstSubmatch(transportRe, text)
	plates := extractPlates(firstSubmatch(vehicleLineRe, text))
	if len(plates) > 0 {
		info.TransportVehicles = strings.Join(plates, ", ")
	}
	if rawTransport != "" || len(plates) > 0 {
		info.TransportService = records.TransportNotProvided
		if strings.Contains(rawTransport, "■") {
			info.TransportService = records.TransportProvided
		}
	}
	return info
}

// extractPlates returns the unique vehicle plate numbers in text, in order of appearance.
func extractPlates(text string) []string {
	cleaned := nonPlateCharRe.ReplaceAllString(text, " ")
	seen := map[string]bool{}
	var plates []string
	for _, plate := range plateRe.FindAllString(cleaned, -1) {
		if !seen[plate] {
			seen[plate] = true
			plates = append(plates, plate)
		}
	}
	return plates
}

type sectionHeader struct {
	category string
	top      float64
}

func (p *Parser) parsePage(state *groupState, page Page) error {
	var headers []sectionHeader
	for _, kw := range sectionKeywords {
		for _, label := range kw.labels {
			for _, top := range page.Search(label) {
				headers = append(headers, sectionHeader{category: kw.category, top: top})
			}
		}
	}
	sort.SliceStable(headers, func(i, j int) bool { return headers[i].top < headers[j].top })

	for _, table := range page.Tables {
		if len(table.Rows) == 0 {
			continue
		}
		if isAppendixTable(table) {
			category := nearestCategory(headers, table.Top)
			p.logger.Debug("Appendix table found", "category", category, "rows", len(table.Rows))
			parseAppendixTable(state, table, category)
			continue
		}
		if err := p.parseMainTable(state, table); err != nil {
			return err
		}
	}
	return nil
}

// nearestCategory picks the closest section header above top, defaulting to functional training.
func nearestCategory(headers []sectionHeader, top float64) string {
	category := categoryFunction
	closest := math.Inf(1)
	for _, h := range headers {
		if h.top < top {
			if diff := top - h.top; diff < closest {
				closest = diff
				category = h.category
			}
		}
	}
	return category
}

func isAppendixTable(table Table) bool {
	for _, row := range table.Rows {
		if len(row) < 2 {
			continue
		}
		if appendixDateRe.MatchString(strings.TrimSpace(row[0])) {
			return true
		}
	}
	return false
}

func parseAppendixTable(state *groupState, table Table, category string) {
	lastDate := ""
	for _, row := range table.Rows {
		if len(row) < 2 {
			continue
		}
		rawDate := strings.TrimSpace(row[0])
		content := strings.TrimSpace(row[1])

		date := ""
		switch {
		case appendixDateRe.MatchString(rawDate):
			date = strings.TrimSpace(strings.ReplaceAll(rawDate, ".", "-"))
			lastDate = date
		case rawDate == "" && content != "" && lastDate != "":
			date = lastDate
		}
		if date == "" || content == "" {
			continue
		}

		content = strings.TrimSpace(strings.ReplaceAll(content, "\n", " "))
		notes, ok := state.appendix[date]
		if !ok {
			notes = make(map[string]string)
			state.appendix[date] = notes
		}
		if existing, ok := notes[category]; ok {
			notes[category] = existing + " / " + content
		} else {
			notes[category] = content
		}
	}
}

func isPlaceholder(text string) bool {
	clean := strings.ReplaceAll(text, " ", "")
	if strings.Contains(clean, "특이사항없음") {
		return false
	}
	return strings.Contains(clean, "별지") || strings.Contains(clean, "첨부") || strings.Contains(clean, "참조")
}

func mergeAppendix(state *groupState) {
	for i := range state.records {
		rec := &state.records[i]
		targets := map[string][]*string{
			categoryPhysical:  {&rec.PhysicalNote},
			categoryNursing:   {&rec.NursingNote},
			categoryFunction:  {&rec.FunctionalNote, &rec.ProgEnhanceDetail},
			categoryCognitive: {&rec.CognitiveNote},
		}
		if notes, ok := state.appendix[rec.Date]; ok {
			for category, fields := range targets {
				content := notes[category]
				if content == "" {
					continue
				}
				for _, field := range fields {
					if isPlaceholder(*field) {
						*field = content
					}
				}
			}
		}
		for _, field := range []*string{&rec.PhysicalNote, &rec.NursingNote, &rec.FunctionalNote, &rec.CognitiveNote} {
			if isPlaceholder(*field) {
				*field += missingAppendixSuffix
			}
		}
	}
}

// rowIndex holds the row of each labelled line of the main sheet table, -1 when absent.
type rowIndex struct {
	date, time, total                                     int
	hygiene, bathTime, bathMethod                         int
	breakfast, lunch, dinner, toilet, mobility, transport int
	cogSupport, commSupport                               int
	bpTemp, health, nursing, emergency                    int
	progBasic, progActivity, progCognitive, progTherapy   int
	enhanceDetail                                         int
	notes, writers                                        []int
}

func (idx rowIndex) nth(rows []int, n int) int {
	if n < len(rows) {
		return rows[n]
	}
	return -1
}

func findRowIndices(table Table) rowIndex {
	idx := rowIndex{
		date: -1, time: -1, total: -1,
		hygiene: -1, bathTime: -1, bathMethod: -1,
		breakfast: -1, lunch: -1, dinner: -1, toilet: -1, mobility: -1, transport: -1,
		cogSupport: -1, commSupport: -1,
		bpTemp: -1, health: -1, nursing: -1, emergency: -1,
		progBasic: -1, progActivity: -1, progCognitive: -1, progTherapy: -1,
		enhanceDetail: -1,
	}

	for i, row := range table.Rows {
		var labelParts []string
		for j := 0; j < len(row) && j < 3; j++ {
			if row[j] != "" {
				labelParts = append(labelParts, strings.ReplaceAll(strings.ReplaceAll(row[j], "\n", ""), " ", ""))
			}
		}
		label := strings.Join(labelParts, "")
		var rowParts []string
		for _, c := range row {
			rowParts = append(rowParts, normalizeLabel(c))
		}
		normalizedRow := strings.Join(rowParts, "")
		has := func(s string, subs ...string) bool {
			for _, sub := range subs {
				if !strings.Contains(s, sub) {
					return false
				}
			}
			return true
		}
		hasItemWord := func(s string) bool { return has(s, "항목") || has(s, "내용") }

		switch {
		case has(label, "년월/일"):
			idx.date = i
		case has(label, "시작시간"):
			idx.time = i
		case has(label, "총시간"):
			idx.total = i
		case has(label, "세면"):
			idx.hygiene = i
		case has(label, "소요시간"):
			idx.bathTime = i
		case has(label, "목욕", "방법"):
			idx.bathMethod = i
		case has(label, "아침"):
			idx.breakfast = i
		case has(label, "점심"):
			idx.lunch = i
		case has(label, "저녁"):
			idx.dinner = i
		case has(label, "화장실") || has(label, "기저귀"):
			idx.toilet = i
		case has(label, "이동도움"):
			idx.mobility = i
		case has(label, "이동서비스"):
			idx.transport = i
		case has(label, "인지관리지원"):
			idx.cogSupport = i
		case has(label, "의사소통"):
			idx.commSupport = i
		case has(label, "혈압"):
			idx.bpTemp = i
		case has(label, "건강관리"):
			idx.health = i
		case has(label, "간호관리"):
			idx.nursing = i
		case has(label, "응급"):
			idx.emergency = i
		case has(label, "기본동작"):
			idx.progBasic = i
		case has(label, "인지활동"):
			idx.progActivity = i
		case has(label, "신체", "인지기능", "향상", "프로그램") || has(normalizedRow, "신체인지기능향상프로그램"):
			idx.enhanceDetail = i
		case has(label, "인지기능", "향상", "훈련") || has(normalizedRow, "인지기능향상훈련"):
			idx.progCognitive = i
		case has(label, "물리"):
			idx.progTherapy = i
		case has(normalizedRow, "향상프로그램") && hasItemWord(normalizedRow):
			idx.enhanceDetail = i
		case has(label, "특이사항"):
			idx.notes = append(idx.notes, i)
		case has(label, "작성자"):
			idx.writers = append(idx.writers, i)
		}
	}
	return idx
}

// cleanDate turns a sheet date cell into YYYY-MM-DD. Month/day cells use the reference year.
func (p *Parser) cleanDate(raw string) string {
	clean := strings.TrimSpace(strings.ReplaceAll(parenthesizedRe.ReplaceAllString(raw, ""), ".", "-"))
	if !strings.Contains(clean, "/") {
		return clean
	}
	parts := strings.Split(clean, "/")
	if len(parts) < 2 {
		return ""
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return ""
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d-%02d-%02d", p.recordYear, month, day)
}

func checkStatus(text string) string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return records.StatusNotDone
	}
	for _, symbol := range checkedSymbols {
		if strings.Contains(clean, symbol) {
			return records.StatusDone
		}
	}
	return records.StatusNotDone
}

func customerNameFromTable(table Table) string {
	if len(table.Rows) == 0 {
		return unknownCustomer
	}
	for _, cell := range table.Rows[0] {
		if len([]rune(cell)) > 1 && !strings.Contains(cell, "수급자") {
			return strings.ReplaceAll(cell, " ", "")
		}
	}
	return unknownCustomer
}

func isEnhanceLabel(text string) bool {
	normalized := normalizeLabel(text)
	for _, word := range enhanceLabelWords {
		if strings.Contains(normalized, word) {
			return true
		}
	}
	return false
}

// pickNearbyText returns the longest non-label text of the row, falling back to a
// window of columns around col.
func pickNearbyText(table Table, row, col, window int) string {
	if row < 0 || row >= len(table.Rows) {
		return ""
	}
	width := len(table.Rows[row])
	pick := func(from, to int) string {
		best := ""
		for j := from; j <= to; j++ {
			v := table.cell(row, j)
			if len([]rune(v)) < 2 || isEnhanceLabel(v) {
				continue
			}
			if len([]rune(v)) > len([]rune(best)) {
				best = v
			}
		}
		return best
	}
	if best := pick(0, width-1); best != "" {
		return best
	}
	return pick(max(0, col-window), min(width-1, col+window))
}

func (p *Parser) parseMainTable(state *groupState, table Table) error {
	idx := findRowIndices(table)
	if idx.date == -1 {
		return nil
	}

	base := records.NewRecord("")
	base.CustomerName = state.personal.CustomerName
	if base.CustomerName == "" {
		base.CustomerName = customerNameFromTable(table)
	}
	base.CustomerBirthDate = state.personal.BirthDate
	base.CustomerGrade = state.personal.CareGrade
	base.CustomerRecognitionNo = state.personal.RecognitionNo
	base.FacilityName = state.personal.FacilityName
	base.FacilityCode = state.personal.FacilityCode
	base.StartTime = state.basic.StartTime
	base.EndTime = state.basic.EndTime
	base.TotalServiceTime = state.basic.TotalServiceTime
	if state.basic.TransportService != "" {
		base.TransportService = state.basic.TransportService
	}
	base.TransportVehicles = state.basic.TransportVehicles

	get := func(row, col int) string {
		if row == -1 {
			return ""
		}
		return table.cell(row, col)
	}

	for col, rawDate := range table.Rows[idx.date] {
		if rawDate == "" || strings.Contains(rawDate, "월/일") {
			continue
		}
		date := p.cleanDate(rawDate)
		if date == "" {
			continue
		}

		var rec records.Record
		if err := copier.Copy(&rec, &base); err != nil {
			return fmt.Errorf("failed to copy record template: %w", err)
		}
		rec.Date = date

		absent := false
		if total := get(idx.total, col); total != "" {
			rec.TotalServiceTime = strings.ReplaceAll(total, " ", "")
			if records.IsAbsenceStatus(rec.TotalServiceTime) {
				rec.StartTime = ""
				rec.EndTime = ""
				rec.TransportService = records.TransportNotProvided
				rec.TransportVehicles = ""
				absent = true
			}
		}

		if !absent {
			if cell := get(idx.transport, col); cell != "" {
				rec.TransportService = records.TransportNotProvided
				if strings.Contains(cell, "■") {
					rec.TransportService = records.TransportProvided
				}
				rec.TransportVehicles = strings.Join(extractPlates(cell), ", ")
			}
		}

		if times := get(idx.time, col); strings.Contains(times, "~") {
			start, end, _ := strings.Cut(times, "~")
			rec.StartTime = strings.TrimSpace(start)
			rec.EndTime = strings.TrimSpace(end)
		}

		if idx.hygiene != -1 {
			rec.HygieneCare = checkStatus(get(idx.hygiene, col))
		}
		bathTime, bathMethod := get(idx.bathTime, col), get(idx.bathMethod, col)
		if (bathTime == "" || bathTime == "-") && (bathMethod == "" || bathMethod == "-") {
			rec.BathTime = bathNotAvailable
			rec.BathMethod = ""
		} else {
			rec.BathTime = bathTime
			rec.BathMethod = bathMethod
		}

		if idx.breakfast != -1 {
			rec.MealBreakfast = get(idx.breakfast, col)
		}
		if idx.lunch != -1 {
			rec.MealLunch = get(idx.lunch, col)
		}
		if idx.dinner != -1 {
			rec.MealDinner = get(idx.dinner, col)
		}
		if idx.toilet != -1 {
			rec.ToiletCare = get(idx.toilet, col)
		}
		if idx.mobility != -1 {
			rec.MobilityCare = checkStatus(get(idx.mobility, col))
		}

		if idx.cogSupport != -1 {
			rec.CogSupport = checkStatus(get(idx.cogSupport, col))
		}
		if idx.commSupport != -1 {
			rec.CommSupport = checkStatus(get(idx.commSupport, col))
		}

		if idx.bpTemp != -1 {
			rec.BPTemp = get(idx.bpTemp, col)
		}
		if idx.health != -1 {
			rec.HealthManage = checkStatus(get(idx.health, col))
		}
		if idx.nursing != -1 {
			rec.NursingManage = checkStatus(get(idx.nursing, col))
		}
		if idx.emergency != -1 {
			rec.Emergency = checkStatus(get(idx.emergency, col))
		}

		if idx.progBasic != -1 {
			rec.ProgBasic = checkStatus(get(idx.progBasic, col))
		}
		if idx.progActivity != -1 {
			rec.ProgActivity = checkStatus(get(idx.progActivity, col))
		}
		if idx.progCognitive != -1 {
			rec.ProgCognitive = checkStatus(get(idx.progCognitive, col))
		}
		if idx.progTherapy != -1 {
			rec.ProgTherapy = checkStatus(get(idx.progTherapy, col))
		}
		if idx.enhanceDetail != -1 {
			rec.ProgEnhanceDetail = pickNearbyText(table, idx.enhanceDetail, col, 8)
		}

		rec.PhysicalNote = get(idx.nth(idx.notes, 0), col)
		rec.CognitiveNote = get(idx.nth(idx.notes, 1), col)
		rec.NursingNote = get(idx.nth(idx.notes, 2), col)
		rec.FunctionalNote = get(idx.nth(idx.notes, 3), col)

		rec.WriterPhy = get(idx.nth(idx.writers, 0), col)
		rec.WriterCog = get(idx.nth(idx.writers, 1), col)
		rec.WriterNur = get(idx.nth(idx.writers, 2), col)
		rec.WriterFunc = get(idx.nth(idx.writers, 3), col)

		state.records = append(state.records, rec)
	}
	return nil
}
