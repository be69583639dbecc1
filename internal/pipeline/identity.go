package pipeline

import (
	"strings"

	"DanceSync/internal/model"
)

// IdentityKey 去重桶键 "日期|场馆键|标题键"；由字段推导，每次合并后重新计算
func IdentityKey(ev *model.CanonicalEvent) string {
	k := NaturalKeyOf(ev)
	return k.EventDay.String() + "|" + k.VenueKey + "|" + k.TitleKey
}

// NaturalKeyOf 计算事件的业务键
func NaturalKeyOf(ev *model.CanonicalEvent) model.NaturalKey {
	return model.NaturalKey{
		TitleKey: TitleKey(ev.Title, ev.VenueName),
		VenueKey: venueKeyOf(ev),
		EventDay: ev.EventDay(),
	}
}

// TitleKey 标题键；标题以 " at <场馆>" / " @ <场馆>" 结尾且与场馆名互相包含时去掉该后缀，
// 使 "Salsa Night @ The Grand" 与 "Salsa Night at the Grand Ballroom" 得到同一个键
func TitleKey(title string, venue *string) string {
	t := keyText(title)
	if venue == nil {
		return t
	}
	vTokens := significantTokens(keyText(*venue))
	if len(vTokens) == 0 {
		return t
	}
	idx := strings.LastIndex(t, " at ")
	if idx <= 0 {
		return t
	}
	head := strings.TrimSpace(t[:idx])
	tTokens := significantTokens(t[idx+len(" at "):])
	if head == "" || len(tTokens) == 0 {
		return t
	}
	if subset(tTokens, vTokens) || subset(vTokens, tTokens) {
		return head
	}
	return t
}

// VenueKey 场馆键，去掉开头的 "the"
func VenueKey(venue string) string {
	k := keyText(venue)
	if rest, ok := strings.CutPrefix(k, "the "); ok {
		return rest
	}
	return k
}

// venueKeyOf 无场馆时退化为地址键，地址也没有时退化为 "@城市 国家"。
// keyText 会把 "@" 换成 " at "，因此该形式不会与真实场馆或地址键重合
func venueKeyOf(ev *model.CanonicalEvent) string {
	if ev.VenueName != nil {
		if k := VenueKey(*ev.VenueName); k != "" {
			return k
		}
	}
	if ev.Address != nil {
		if k := keyText(*ev.Address); k != "" {
			return k
		}
	}
	if k := keyText(ev.City + " " + ev.Country); k != "" {
		return "@" + k
	}
	return ""
}

func significantTokens(s string) []string {
	var out []string
	for _, tok := range strings.Fields(s) {
		if tok == "the" {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func subset(a, b []string) bool {
	set := make(map[string]struct{}, len(b))
	for _, t := range b {
		set[t] = struct{}{}
	}
	for _, t := range a {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
