package model

import "time"

// CandidateEvent 单条原始记录抽取出的候选事件（未校验、字段自由文本）
// 未观察到的字段一律为 nil；空串与 "unknown" 属于"观察到的值"，与 nil 语义不同
type CandidateEvent struct {
	SourceID       SourceID
	SourceRef      string // 数据源内唯一（平台事件 ID 或 URL），只用于溯源
	RawTitle       *string
	RawDescription *string
	RawVenue       *string
	RawAddress     *string
	RawStart       *string // 自由格式日期时间，或 RFC3339 时间戳
	RawPrice       *string
	FetchedAt      time.Time
	Confidence     float64 // 适配器对自身抽取质量的声明，[0,1]
	Query          QueryContext
}

// Provenance 溯源元组
func (c *CandidateEvent) Provenance() Provenance {
	return Provenance{
		SourceID:   c.SourceID,
		SourceRef:  c.SourceRef,
		Confidence: c.Confidence,
		FetchedAt:  c.FetchedAt,
	}
}

// StringPtr 返回 s 的指针（测试与映射器共用）
func StringPtr(s string) *string { return &s }
