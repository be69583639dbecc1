package model

import (
	"sort"
	"time"
)

// Provenance 来源溯源元组 (source_id, source_ref, confidence, fetched_at)
type Provenance struct {
	SourceID   SourceID  `json:"source_id"`
	SourceRef  string    `json:"source_ref"`
	Confidence float64   `json:"confidence"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Less 溯源元组的确定性全序，用于集合比较与冲突裁决的最终兜底
func (p Provenance) Less(o Provenance) bool {
	if p.SourceID != o.SourceID {
		return p.SourceID < o.SourceID
	}
	if p.SourceRef != o.SourceRef {
		return p.SourceRef < o.SourceRef
	}
	if p.Confidence != o.Confidence {
		return p.Confidence < o.Confidence
	}
	return p.FetchedAt.Before(o.FetchedAt)
}

// FieldOrigins 记录每个标量字段当前取值来自哪条来源，合并时据此裁决
type FieldOrigins struct {
	Title       Provenance
	Description Provenance
	Start       Provenance
	Venue       Provenance
	Address     Provenance
	Price       Provenance
}

// NaturalKey 面向 Sink 的业务键，对应 events_clean 的 (title_key, venue_key, event_day)
type NaturalKey struct {
	TitleKey string `json:"title_key"`
	VenueKey string `json:"venue_key"`
	EventDay Date   `json:"event_day"`
}

// CanonicalEvent 规范化、去重后的事件
type CanonicalEvent struct {
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	StartAt       *time.Time `json:"start_at,omitempty"`   // 带时区的完整时间
	StartDate     *Date      `json:"start_date,omitempty"` // 仅知道日期时使用
	VenueName     *string    `json:"venue_name,omitempty"`
	Address       *string    `json:"address,omitempty"`
	PriceCents    *int64     `json:"price_cents,omitempty"`
	PriceCurrency *string    `json:"price_currency,omitempty"`
	City          string     `json:"city"`
	Country       string     `json:"country"`
	DanceStyles   []string   `json:"dance_styles,omitempty"`
	LiveBand      bool       `json:"live_band"`
	ClassBefore   bool       `json:"class_before"`

	IdentityKey string       `json:"identity_key"` // 去重桶键，每次合并后重新计算
	Key         NaturalKey   `json:"natural_key"`  // 结束时填充
	Sources     []Provenance `json:"sources"`

	Origins FieldOrigins `json:"-"`
}

// HasStart 是否有可用的开始时间或日期
func (e *CanonicalEvent) HasStart() bool {
	return e.StartAt != nil || (e.StartDate != nil && !e.StartDate.IsZero())
}

// EventDay 事件的日历日期（时间戳取其所在时区的日期）
func (e *CanonicalEvent) EventDay() Date {
	if e.StartAt != nil {
		return DateOf(*e.StartAt)
	}
	if e.StartDate != nil {
		return *e.StartDate
	}
	return Date{}
}

// SortedSources 以确定性顺序返回来源列表副本（用于集合比较与落库）
func (e *CanonicalEvent) SortedSources() []Provenance {
	out := make([]Provenance, len(e.Sources))
	copy(out, e.Sources)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
