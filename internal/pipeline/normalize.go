package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"DanceSync/internal/model"
)

// NormalizerConfig 规范化参数
type NormalizerConfig struct {
	DefaultTimezone   string // 查询上下文未给出时区时使用，空则 UTC
	RequireDanceStyle bool   // 未识别出任何舞种的事件以 NOT_DANCE 拒绝
}

// Normalizer 候选事件 -> 规范事件。纯函数式，除时区缓存外无状态，可并发使用
type Normalizer struct {
	cfg       NormalizerConfig
	locations sync.Map // string -> *time.Location
}

func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Normalize 规范化单条候选；失败返回带原因码的拒绝
func (n *Normalizer) Normalize(c *model.CandidateEvent) (*model.CanonicalEvent, *model.Rejection) {
	title := normalizeTitle(c.RawTitle, c.Query.City)
	if title == "" || keyText(title) == "" {
		return nil, n.reject(c, model.ReasonEmptyTitle, "title empty after cleaning")
	}

	if c.RawStart == nil || strings.TrimSpace(*c.RawStart) == "" {
		return nil, n.reject(c, model.ReasonNoDate, "no start text")
	}
	loc := n.location(c.Query.Timezone)
	dctx := dateContext{
		loc:      loc,
		ref:      c.FetchedAt.In(loc),
		dayFirst: dayFirstCountry(c.Query.CountryCode),
	}
	res, _, ok := resolveStart(*c.RawStart, dctx)
	if !ok {
		return nil, n.reject(c, model.ReasonNoDate, fmt.Sprintf("unparseable start %q", *c.RawStart))
	}

	prov := c.Provenance()
	ev := &model.CanonicalEvent{
		Title:       title,
		Description: normalizeDescription(c.RawDescription),
		StartAt:     res.at,
		StartDate:   res.date,
		VenueName:   normalizeVenue(c.RawVenue),
		Address:     normalizeAddress(c.RawAddress),
		City:        c.Query.City,
		Country:     c.Query.Country,
		Sources:     []model.Provenance{prov},
	}
	ev.PriceCents, ev.PriceCurrency = parsePrice(c.RawPrice, c.Query.CountryCode)

	if day := ev.EventDay(); !c.Query.Window.Contains(day) {
		return nil, n.reject(c, model.ReasonOutOfWindow, fmt.Sprintf("%s outside %s..%s", day, c.Query.Window.From, c.Query.Window.To))
	}

	text := styleText(c.RawTitle, c.RawDescription)
	ev.DanceStyles = detectDanceStyles(text)
	if n.cfg.RequireDanceStyle && len(ev.DanceStyles) == 0 {
		return nil, n.reject(c, model.ReasonNotDance, "no dance style detected")
	}
	ev.LiveBand = detectLiveBand(text)
	ev.ClassBefore = detectClassBefore(text)

	ev.Origins = model.FieldOrigins{Title: prov, Start: prov}
	if ev.Description != nil {
		ev.Origins.Description = prov
	}
	if ev.VenueName != nil {
		ev.Origins.Venue = prov
	}
	if ev.Address != nil {
		ev.Origins.Address = prov
	}
	if ev.PriceCents != nil {
		ev.Origins.Price = prov
	}
	ev.IdentityKey = IdentityKey(ev)
	return ev, nil
}

// location 解析 IANA 时区并缓存；非法时区退回默认时区
func (n *Normalizer) location(name string) *time.Location {
	if name == "" {
		name = n.cfg.DefaultTimezone
	}
	if name == "" {
		return time.UTC
	}
	if v, ok := n.locations.Load(name); ok {
		return v.(*time.Location)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if name != n.cfg.DefaultTimezone {
			return n.location(n.cfg.DefaultTimezone)
		}
		loc = time.UTC
	}
	n.locations.Store(name, loc)
	return loc
}

func (n *Normalizer) reject(c *model.CandidateEvent, reason model.ReasonCode, detail string) *model.Rejection {
	return &model.Rejection{
		Stage:     model.StageNormalizer,
		Reason:    reason,
		SourceID:  c.SourceID,
		SourceRef: c.SourceRef,
		Detail:    detail,
	}
}
