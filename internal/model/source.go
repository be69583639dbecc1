package model

import (
	"time"
)

// SourceID 数据源标识（封闭枚举，每个值对应固定的字段映射策略）
type SourceID string

const (
	SourceSerpAPIEvents     SourceID = "serpapi_events"     // SerpAPI google_events 引擎
	SourceSerpAPIOrganic    SourceID = "serpapi_organic"    // SerpAPI 自然搜索结果
	SourceDataForSEOEvents  SourceID = "dataforseo_events"  // DataForSEO events SERP
	SourceDataForSEOOrganic SourceID = "dataforseo_organic" // DataForSEO 自然搜索结果
	SourceEventbrite        SourceID = "eventbrite"
	SourceMeetup            SourceID = "meetup"
	SourceTicketmaster      SourceID = "ticketmaster"
	SourceRSS               SourceID = "rss"
	SourceEmbeddedJSON      SourceID = "embedded_json" // HTML 中嵌入的 schema.org JSON-LD
)

// SourceKind 数据源形态（决定使用哪一类映射策略）
type SourceKind string

const (
	KindSerpOrganic   SourceKind = "serp_organic"
	KindSerpEvents    SourceKind = "serp_events"
	KindEventPlatform SourceKind = "event_platform"
	KindRSS           SourceKind = "rss"
	KindEmbeddedJSON  SourceKind = "embedded_json"
)

// Kind 返回数据源所属形态；未知数据源返回空串
func (s SourceID) Kind() SourceKind {
	switch s {
	case SourceSerpAPIOrganic, SourceDataForSEOOrganic:
		return KindSerpOrganic
	case SourceSerpAPIEvents, SourceDataForSEOEvents:
		return KindSerpEvents
	case SourceEventbrite, SourceMeetup, SourceTicketmaster:
		return KindEventPlatform
	case SourceRSS:
		return KindRSS
	case SourceEmbeddedJSON:
		return KindEmbeddedJSON
	default:
		return ""
	}
}

// AllSources 所有已知数据源
func AllSources() []SourceID {
	return []SourceID{
		SourceSerpAPIEvents, SourceSerpAPIOrganic,
		SourceDataForSEOEvents, SourceDataForSEOOrganic,
		SourceEventbrite, SourceMeetup, SourceTicketmaster,
		SourceRSS, SourceEmbeddedJSON,
	}
}

// DateWindow 查询的日期窗口（零值表示不限）
type DateWindow struct {
	From Date `json:"from"`
	To   Date `json:"to"`
}

// Contains 判断日期是否落在窗口内（闭区间）
func (w DateWindow) Contains(d Date) bool {
	if !w.From.IsZero() && d.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && w.To.Before(d) {
		return false
	}
	return true
}

// QueryContext 一次抓取的查询上下文：关键词 × 城市 × 日期窗口
// City/Country 直接传递到规范事件，不从原始文本解析
type QueryContext struct {
	City        string     `json:"city"`
	Country     string     `json:"country"`
	CountryCode string     `json:"country_code"` // ISO 3166-1 alpha-2，用于日期格式与货币推断
	Keyword     string     `json:"keyword"`
	Timezone    string     `json:"timezone"` // IANA 时区，无时区的时间按此解释
	Language    string     `json:"language"` // SerpAPI hl
	Window      DateWindow `json:"date_window"`
}

// RawRecord 适配器产出的单条原始记录
// Payload 为 JSON 对象（RSS 为单个 <item> 的 XML）
type RawRecord struct {
	SourceID  SourceID
	Payload   []byte
	FetchedAt time.Time
	Query     QueryContext
}
