package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"DanceSync/internal/model"
)

const (
	monthPattern   = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
	weekdayPattern = `(mon(?:day)?|tue(?:s(?:day)?)?|wed(?:nesday)?|thu(?:r(?:s(?:day)?)?)?|fri(?:day)?|sat(?:urday)?|sun(?:day)?)`

	// 推断年份时允许的回溯天数：抓取稍有滞后时，几天前的日期仍视为当年
	yearInferenceGraceDays = 7
)

var (
	monthDayRe = regexp.MustCompile(`(?i)\b(?:` + weekdayPattern + `\.?,?\s+)?` + monthPattern + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	dayMonthRe = regexp.MustCompile(`(?i)\b(?:` + weekdayPattern + `\.?,?\s+)?(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\b\.?(?:,?\s+(\d{4})\b)?`)
	numericRe  = regexp.MustCompile(`(?i)^(?:` + weekdayPattern + `\.?,?\s+)?(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})\b(.*)$`)

	relativeDayRe     = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow)\b`)
	relativeWeekdayRe = regexp.MustCompile(`(?i)\b(?:(this|next|every|coming)\s+)?` + weekdayPattern + `s?\b`)

	timeRangeRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:[:.](\d{2}))?\s*(?:([ap])\.?\s?m\.?)?\s*(?:-|–|—|to|until)\s*(\d{1,2})(?:[:.](\d{2}))?\s*([ap])\.?\s?m\.?`)
	time12Re    = regexp.MustCompile(`(?i)\b(\d{1,2})(?:[:.](\d{2}))?\s*([ap])\.?\s?m\b\.?`)
	time24Re    = regexp.MustCompile(`\b([01]?\d|2[0-3])[:h]([0-5]\d)\b`)
)

// 带偏移的时间戳格式（含 DataForSEO 的 "2006-01-02 15:04:05 -07:00"）
var offsetLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04:05 -0700",
	time.RFC1123Z,
}

// 不带时区的本地时间格式，按查询城市时区解释
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// dateContext 日期解析所需的上下文
type dateContext struct {
	loc      *time.Location
	ref      time.Time // fetched_at（已转换到 loc），相对日期的参照
	dayFirst bool      // 数字日期按 DD/MM 解释
}

// dateResult 解析结果：完整时间戳或仅日期，二者取其一
type dateResult struct {
	at   *time.Time
	date *model.Date
}

type dateStrategy struct {
	name  string
	parse func(s string, ctx dateContext) (dateResult, bool)
}

// dateStrategies 有序的解析策略，第一个给出无歧义结果的策略胜出
var dateStrategies = []dateStrategy{
	{name: "iso8601_offset", parse: parseISOWithOffset},
	{name: "iso8601_local", parse: parseISOLocal},
	{name: "iso_date", parse: parseISODate},
	{name: "numeric_date", parse: parseNumericDate},
	{name: "month_name", parse: parseMonthName},
	{name: "relative", parse: parseRelative},
}

// resolveStart 依次尝试各策略，返回结果与命中的策略名
func resolveStart(raw string, ctx dateContext) (dateResult, string, bool) {
	s := strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
	if s == "" {
		return dateResult{}, "", false
	}
	for _, st := range dateStrategies {
		if res, ok := st.parse(s, ctx); ok {
			return res, st.name, true
		}
	}
	return dateResult{}, "", false
}

func parseISOWithOffset(s string, ctx dateContext) (dateResult, bool) {
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.In(ctx.loc)
			return dateResult{at: &t}, true
		}
	}
	return dateResult{}, false
}

func parseISOLocal(s string, ctx dateContext) (dateResult, bool) {
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, ctx.loc); err == nil {
			return dateResult{at: &t}, true
		}
	}
	return dateResult{}, false
}

func parseISODate(s string, _ dateContext) (dateResult, bool) {
	d, err := model.ParseDate(s)
	if err != nil {
		return dateResult{}, false
	}
	return dateResult{date: &d}, true
}

// parseNumericDate 处理 03/14/2025、Fri 14.03.2025 等；两种解释都合法且不同时，
// 先用星期（若有）区分，再按国家习惯。年份总是显式给出，星期不符时仍以数字为准
func parseNumericDate(s string, ctx dateContext) (dateResult, bool) {
	m := numericRe.FindStringSubmatch(s)
	if m == nil {
		return dateResult{}, false
	}
	a, _ := strconv.Atoi(m[2])
	b, _ := strconv.Atoi(m[3])
	year, _ := strconv.Atoi(m[4])
	if len(m[4]) == 2 {
		year += 2000
	}
	monthFirst := model.Date{Year: year, Month: time.Month(a), Day: b}
	dayFirst := model.Date{Year: year, Month: time.Month(b), Day: a}
	mfOK, dfOK := validDate(monthFirst), validDate(dayFirst)
	if mfOK && dfOK && monthFirst != dayFirst && m[1] != "" {
		if wd, ok := weekdayByName(m[1]); ok {
			mfWD, dfWD := monthFirst.Weekday() == wd, dayFirst.Weekday() == wd
			if mfWD != dfWD {
				mfOK, dfOK = mfWD, dfWD
			}
		}
	}

	var d model.Date
	switch {
	case mfOK && dfOK:
		if ctx.dayFirst {
			d = dayFirst
		} else {
			d = monthFirst
		}
	case mfOK:
		d = monthFirst
	case dfOK:
		d = dayFirst
	default:
		return dateResult{}, false
	}
	return withClock(d, m[5], ctx), true
}

// parseMonthName 处理 "Fri, March 14"、"Mar 14, 2025 9 PM"、"14 March" 等
// 显式年份时以年份为准；无年份时取参照日附近最早的未来日期，有星期信息则要求星期一致
func parseMonthName(s string, ctx dateContext) (dateResult, bool) {
	var weekday, month, dayStr, yearStr string
	var start, end int
	if idx := monthDayRe.FindStringSubmatchIndex(s); idx != nil {
		weekday, month, dayStr, yearStr = group(s, idx, 1), group(s, idx, 2), group(s, idx, 3), group(s, idx, 4)
		start, end = idx[0], idx[1]
	} else if idx := dayMonthRe.FindStringSubmatchIndex(s); idx != nil {
		weekday, dayStr, month, yearStr = group(s, idx, 1), group(s, idx, 2), group(s, idx, 3), group(s, idx, 4)
		start, end = idx[0], idx[1]
	} else {
		return dateResult{}, false
	}

	mon, ok := monthByName(month)
	if !ok {
		return dateResult{}, false
	}
	day, _ := strconv.Atoi(dayStr)

	var d model.Date
	if yearStr != "" {
		year, _ := strconv.Atoi(yearStr)
		d = model.Date{Year: year, Month: mon, Day: day}
		if !validDate(d) {
			return dateResult{}, false
		}
	} else {
		var wd *time.Weekday
		if weekday != "" {
			if w, ok := weekdayByName(weekday); ok {
				wd = &w
			}
		}
		year, ok := inferYear(mon, day, wd, model.DateOf(ctx.ref))
		if !ok {
			return dateResult{}, false
		}
		d = model.Date{Year: year, Month: mon, Day: day}
	}
	rest := s[:start] + " " + s[end:]
	return withClock(d, rest, ctx), true
}

// parseRelative 处理 today / tonight / tomorrow / this Friday / next Friday / Fridays
// "next X" 定义为 "this X" 之后一周
func parseRelative(s string, ctx dateContext) (dateResult, bool) {
	ref := model.DateOf(ctx.ref)
	if idx := relativeDayRe.FindStringSubmatchIndex(s); idx != nil {
		d := ref
		if strings.EqualFold(group(s, idx, 1), "tomorrow") {
			d = ref.AddDays(1)
		}
		return withClock(d, s[:idx[0]]+" "+s[idx[1]:], ctx), true
	}
	if idx := relativeWeekdayRe.FindStringSubmatchIndex(s); idx != nil {
		target, ok := weekdayByName(group(s, idx, 2))
		if !ok {
			return dateResult{}, false
		}
		delta := (int(target) - int(ref.Weekday()) + 7) % 7
		if strings.EqualFold(group(s, idx, 1), "next") {
			delta += 7
		}
		return withClock(ref.AddDays(delta), s[:idx[0]]+" "+s[idx[1]:], ctx), true
	}
	return dateResult{}, false
}

// withClock 在剩余文本中查找时刻；找到则返回完整时间戳，否则仅日期
func withClock(d model.Date, rest string, ctx dateContext) dateResult {
	if h, m, ok := findClock(rest); ok {
		t := time.Date(d.Year, d.Month, d.Day, h, m, 0, 0, ctx.loc)
		return dateResult{at: &t}
	}
	return dateResult{date: &d}
}

// findClock 依次匹配时间段、12 小时制、24 小时制
func findClock(s string) (hour, minute int, ok bool) {
	if m := timeRangeRe.FindStringSubmatch(s); m != nil {
		startMer, endMer := strings.ToLower(m[3]), strings.ToLower(m[6])
		if startMer == "" {
			startMer = endMer
			sh, _ := strconv.Atoi(m[1])
			eh, _ := strconv.Atoi(m[4])
			if sh%12 > eh%12 {
				startMer = flipMeridiem(endMer)
			}
		}
		return clock12(m[1], m[2], startMer)
	}
	if m := time12Re.FindStringSubmatch(s); m != nil {
		return clock12(m[1], m[2], strings.ToLower(m[3]))
	}
	if m := time24Re.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		return h, mi, true
	}
	return 0, 0, false
}

func clock12(hStr, mStr, meridiem string) (int, int, bool) {
	h, err := strconv.Atoi(hStr)
	if err != nil || h < 1 || h > 12 {
		return 0, 0, false
	}
	mi := 0
	if mStr != "" {
		mi, err = strconv.Atoi(mStr)
		if err != nil || mi > 59 {
			return 0, 0, false
		}
	}
	h %= 12
	if meridiem == "p" {
		h += 12
	}
	return h, mi, true
}

func flipMeridiem(m string) string {
	if m == "p" {
		return "a"
	}
	return "p"
}

// inferYear 在参照年前后一年内选最早的、不早于 (参照日-宽限) 的合法日期
func inferYear(month time.Month, day int, wd *time.Weekday, ref model.Date) (int, bool) {
	floor := ref.AddDays(-yearInferenceGraceDays)
	best := 0
	for y := ref.Year - 1; y <= ref.Year+1; y++ {
		d := model.Date{Year: y, Month: month, Day: day}
		if !validDate(d) || d.Before(floor) {
			continue
		}
		if wd != nil && d.Weekday() != *wd {
			continue
		}
		if best == 0 || y < best {
			best = y
		}
	}
	return best, best != 0
}

func validDate(d model.Date) bool {
	if d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	return model.DateOf(d.In(time.UTC)) == d
}

func monthByName(s string) (time.Month, bool) {
	s = strings.ToLower(s)
	if len(s) < 3 {
		return 0, false
	}
	switch s[:3] {
	case "jan":
		return time.January, true
	case "feb":
		return time.February, true
	case "mar":
		return time.March, true
	case "apr":
		return time.April, true
	case "may":
		return time.May, true
	case "jun":
		return time.June, true
	case "jul":
		return time.July, true
	case "aug":
		return time.August, true
	case "sep":
		return time.September, true
	case "oct":
		return time.October, true
	case "nov":
		return time.November, true
	case "dec":
		return time.December, true
	}
	return 0, false
}

func weekdayByName(s string) (time.Weekday, bool) {
	s = strings.ToLower(s)
	if len(s) < 3 {
		return 0, false
	}
	switch s[:3] {
	case "sun":
		return time.Sunday, true
	case "mon":
		return time.Monday, true
	case "tue":
		return time.Tuesday, true
	case "wed":
		return time.Wednesday, true
	case "thu":
		return time.Thursday, true
	case "fri":
		return time.Friday, true
	case "sat":
		return time.Saturday, true
	}
	return 0, false
}

// group 取子匹配；未参与匹配的分组返回空串
func group(s string, idx []int, n int) string {
	if 2*n+1 >= len(idx) || idx[2*n] < 0 {
		return ""
	}
	return s[idx[2*n]:idx[2*n+1]]
}

// dayFirstCountry 数字日期按 MM/DD 书写的国家之外均按 DD/MM
func dayFirstCountry(countryCode string) bool {
	switch strings.ToUpper(countryCode) {
	case "US", "PH", "FM", "MH", "PW":
		return false
	}
	return true
}
