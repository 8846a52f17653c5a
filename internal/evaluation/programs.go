package evaluation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var programSuffixes = []string{
	"노래자랑", "프로그램", "만들기",
	"교실", "체조", "훈련", "골프", "놀이", "체험", "치료", "교육", "요법",
}

// particles that may trail a program name, longest first.
var trailingParticles = []string{
	"에서는", "에서도", "에서", "으로", "에게", "까지", "부터",
	"과", "와", "을", "를", "은", "는", "이", "가", "도", "에", "로", "의", "만",
}

var nonQualifiers = map[string]bool{
	"오늘": true, "오전": true, "오후": true, "이번": true, "지난": true, "매일": true,
	"함께": true, "다른": true, "이후": true, "다음": true, "그리고": true,
}

// ExtractPrograms finds program names such as 두뇌튼튼교실 or 실버체조 in free text.
// A plain noun directly before a name is kept with it (재난상황 대응훈련).
func ExtractPrograms(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}

	seen := map[string]bool{}
	programs := []string{}
	for _, segment := range strings.FieldsFunc(text, isSegmentBreak) {
		words := strings.Fields(segment)
		for i, word := range words {
			name, ok := programName(word)
			if !ok {
				continue
			}
			if i > 0 && qualifies(words[i-1]) {
				name = words[i-1] + " " + name
			} else if isSuffix(name) {
				continue
			}
			if !seen[name] {
				seen[name] = true
				programs = append(programs, name)
			}
		}
	}
	return programs
}

func isSegmentBreak(r rune) bool {
	return strings.ContainsRune(",.·/()[]!?\"'~:;\n", r)
}

// programName returns word up to its program suffix when only a particle follows the suffix.
func programName(word string) (string, bool) {
	best := -1
	for _, suffix := range programSuffixes {
		idx := strings.LastIndex(word, suffix)
		if idx < 0 {
			continue
		}
		end := idx + len(suffix)
		rest := word[end:]
		if rest != "" && !isParticle(rest) {
			continue
		}
		if end > best {
			best = end
		}
	}
	if best < 0 {
		return "", false
	}
	return word[:best], true
}

func isParticle(s string) bool {
	for _, p := range trailingParticles {
		if s == p {
			return true
		}
	}
	return false
}

func isSuffix(s string) bool {
	for _, suffix := range programSuffixes {
		if s == suffix {
			return true
		}
	}
	return false
}

// qualifies reports whether word is a bare Hangul noun that can prefix a program name.
func qualifies(word string) bool {
	if utf8.RuneCountInString(word) < 2 || nonQualifiers[word] {
		return false
	}
	if _, ok := programName(word); ok {
		return false
	}
	for _, r := range word {
		if !unicode.Is(unicode.Hangul, r) {
			return false
		}
	}
	last, _ := utf8.DecodeLastRuneInString(word)
	return !strings.ContainsRune("은는이가을를과와도에의로만서고며함음임", last)
}
