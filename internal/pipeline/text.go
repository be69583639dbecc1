package pipeline

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	nonKeyRe     = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	commaRe      = regexp.MustCompile(`\s*,[\s,]*`)

	// 标题/场馆末尾的售票、平台类样板文字
	boilerplateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*[|\-–—:·]\s*(?:buy|get|book)\s+(?:your\s+)?tickets?(?:\s+(?:now|here|online))?\s*!*\s*$`),
		regexp.MustCompile(`(?i)\s*[|\-–—·]\s*tickets?(?:\s*(?:&|and)\s*info(?:rmation)?)?\s*$`),
		regexp.MustCompile(`(?i)\s*[|\-–—·]\s*(?:eventbrite|meetup|ticketmaster|facebook|allevents(?:\.in)?|dice(?:\.fm)?|resident\s+advisor|sympla)\s*$`),
		regexp.MustCompile(`(?i)\s*[|\-–—·]\s*(?:rsvp|register)(?:\s+(?:now|here|today))?\s*!*\s*$`),
		regexp.MustCompile(`(?i)\s*[|\-–—·]\s*(?:sold\s+out|on\s+sale\s+now)\s*!*\s*$`),
	}

	// 标题末尾的日期后缀，如 " - Fri, Mar 14"、" | 14/03/2025"
	titleDateSuffixRe = regexp.MustCompile(`(?i)\s*[|\-–—,·@]\s*(?:` + weekdayPattern + `\.?,?\s*)?(?:` +
		monthPattern + `\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s*\d{4})?|` +
		`\d{1,2}(?:st|nd|rd|th)?\s+` + monthPattern + `\.?(?:,?\s*\d{4})?|` +
		`\d{1,2}[/.]\d{1,2}(?:[/.]\d{2,4})?|` +
		`\d{4}-\d{2}-\d{2})\s*$`)

	trailingSeparatorRe = regexp.MustCompile(`[\s|\-–—,:·@]+$`)
	leadingSeparatorRe  = regexp.MustCompile(`^[\s|\-–—,:·]+`)
)

// collapse 合并空白并去掉首尾空白
func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// stripHTML 去掉标签并反转义实体（RSS / JSON-LD 描述常带 HTML）
func stripHTML(s string) string {
	return html.UnescapeString(htmlTagRe.ReplaceAllString(s, " "))
}

// stripBoilerplate 反复去掉末尾样板文字直到不再变化
func stripBoilerplate(s string) string {
	for {
		before := s
		for _, re := range boilerplateRes {
			s = re.ReplaceAllString(s, "")
		}
		s = strings.TrimSpace(s)
		if s == before {
			return s
		}
	}
}

// normalizeTitle 标题清洗：空白、样板文字、城市后缀、日期后缀，迭代到稳定
func normalizeTitle(raw *string, city string) string {
	if raw == nil {
		return ""
	}
	s := collapse(stripHTML(*raw))
	var cityRes []*regexp.Regexp
	if c := strings.TrimSpace(city); c != "" {
		q := regexp.QuoteMeta(c)
		cityRes = []*regexp.Regexp{
			regexp.MustCompile(`(?i)\s*(?:[|\-–—,·]|\bin\b)\s*` + q + `(?:\s*,\s*[\p{L} .]{2,})?\s*$`),
			regexp.MustCompile(`(?i)\s*\(\s*` + q + `\s*\)\s*$`),
		}
	}
	for {
		before := s
		s = stripBoilerplate(s)
		for _, re := range cityRes {
			s = re.ReplaceAllString(s, "")
		}
		s = titleDateSuffixRe.ReplaceAllString(s, "")
		s = trailingSeparatorRe.ReplaceAllString(s, "")
		s = leadingSeparatorRe.ReplaceAllString(s, "")
		s = strings.TrimSpace(s)
		if s == before {
			return s
		}
	}
}

// normalizeVenue 场馆清洗；大小写混排（如 "DJ's Loft"）视为有意为之，保留原样
func normalizeVenue(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := stripBoilerplate(collapse(stripHTML(*raw)))
	s = trailingSeparatorRe.ReplaceAllString(s, "")
	if s == "" {
		return nil
	}
	if !intentionalCasing(s) {
		s = cases.Title(language.Und).String(s)
	}
	return &s
}

// normalizeAddress 地址只做空白与逗号规整，不改大小写
func normalizeAddress(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := collapse(stripHTML(*raw))
	s = commaRe.ReplaceAllString(s, ", ")
	s = strings.Trim(s, " ,")
	if s == "" {
		return nil
	}
	return &s
}

// normalizeDescription 描述去 HTML、合并空白；空则为 nil
func normalizeDescription(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := collapse(stripHTML(*raw))
	if s == "" {
		return nil
	}
	return &s
}

// intentionalCasing 同时包含长度>=2 的大写串和小写串
func intentionalCasing(s string) bool {
	var upperRun, lowerRun, maxUpper, maxLower int
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upperRun++
			lowerRun = 0
		case unicode.IsLower(r):
			lowerRun++
			upperRun = 0
		default:
			upperRun, lowerRun = 0, 0
		}
		maxUpper = max(maxUpper, upperRun)
		maxLower = max(maxLower, lowerRun)
	}
	return maxUpper >= 2 && maxLower >= 2
}

// foldAccents 去掉变音符号：forró -> forro
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// keyText 生成比较用的键：去变音、小写、去标点、合并空白
func keyText(s string) string {
	s = strings.ToLower(foldAccents(s))
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "@", " at ")
	s = nonKeyRe.ReplaceAllString(s, " ")
	return collapse(s)
}
