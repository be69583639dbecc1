package pipeline

import (
	"regexp"
	"sort"
	"strings"
)

type danceStyle struct {
	name string
	re   *regexp.Regexp
}

// 文本先去变音并转小写后再匹配
var danceStyles = []danceStyle{
	{"Bachata", regexp.MustCompile(`\bbachata\b`)},
	{"Salsa", regexp.MustCompile(`\bsalsa\b`)},
	{"Kizomba", regexp.MustCompile(`\b(?:kizomba|kiz|urban\s+kiz)\b`)},
	{"Zouk", regexp.MustCompile(`\b(?:zouk|brazilian\s+zouk)\b`)},
	{"Forro", regexp.MustCompile(`\bforro\b`)},
	{"Samba", regexp.MustCompile(`\bsamba\b`)},
	{"Pagode", regexp.MustCompile(`\bpagode\b`)},
	{"Lambada", regexp.MustCompile(`\blambada\b`)},
	{"Tango", regexp.MustCompile(`\b(?:tango|milonga)\b`)},
	{"West Coast Swing", regexp.MustCompile(`\b(?:west\s+coast\s+swing|wcs)\b`)},
	{"Lindy Hop", regexp.MustCompile(`\blindy(?:\s+hop)?\b`)},
	{"Balboa", regexp.MustCompile(`\bbalboa\b`)},
	{"Swing", regexp.MustCompile(`\b(?:east\s+coast\s+)?swing\b`)},
	{"Cha Cha", regexp.MustCompile(`\bcha[\s-]?cha(?:[\s-]?cha)?\b`)},
	{"Merengue", regexp.MustCompile(`\bmerengue\b`)},
	{"Cumbia", regexp.MustCompile(`\bcumbia\b`)},
	{"Reggaeton", regexp.MustCompile(`\breggaeton\b`)},
	{"Hustle", regexp.MustCompile(`\bhustle\b`)},
	{"Ballroom", regexp.MustCompile(`\bballroom\s+danc(?:e|ing)\b`)},
}

var (
	liveBandRe    = regexp.MustCompile(`\b(?:banda|band|live\s+music|ao\s+vivo|grupo|orchestra|orquesta)\b`)
	classBeforeRe = regexp.MustCompile(`\b(?:aula|aulas|class|classes|workshop|lesson|lessons|curso|beginners?\s+session)\b`)
)

// styleText 拼接用于舞种/标记检测的文本
func styleText(parts ...*string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == nil {
			continue
		}
		b.WriteString(*p)
		b.WriteByte(' ')
	}
	return strings.ToLower(foldAccents(b.String()))
}

// detectDanceStyles 返回排序去重后的舞种
func detectDanceStyles(text string) []string {
	var out []string
	for _, ds := range danceStyles {
		if ds.re.MatchString(text) {
			out = append(out, ds.name)
		}
	}
	sort.Strings(out)
	return out
}

func detectLiveBand(text string) bool    { return liveBandRe.MatchString(text) }
func detectClassBefore(text string) bool { return classBeforeRe.MatchString(text) }

// unionStyles 两个有序舞种集合的并集
func unionStyles(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
