package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"DanceSync/internal/model"
)

// 各类数据源对自身抽取质量的默认置信度
const (
	confidenceEmbeddedJSON  = 1.0
	confidenceTicketmaster  = 0.95
	confidenceEventbrite    = 0.95
	confidenceMeetup        = 0.9
	confidenceRSSStructured = 0.9
	confidenceSerpEvents    = 0.6
	confidenceRSSScraped    = 0.4
	confidenceSerpOrganic   = 0.3

	// 从自由文本截取日期片段时向后最多保留的字符数（用来带上时刻）
	datePhraseTail = 40
)

type mapFunc func(rec *model.RawRecord) (*model.CandidateEvent, *model.Rejection)

// mappers 固定的 source_id -> 映射策略表；新增数据源必须在此登记
var mappers = map[model.SourceID]mapFunc{
	model.SourceSerpAPIEvents:     mapSerpAPIEvent,
	model.SourceSerpAPIOrganic:    mapSerpAPIOrganic,
	model.SourceDataForSEOEvents:  mapDataForSEOEvent,
	model.SourceDataForSEOOrganic: mapDataForSEOOrganic,
	model.SourceEventbrite:        mapEventbrite,
	model.SourceMeetup:            mapMeetup,
	model.SourceTicketmaster:      mapTicketmaster,
	model.SourceRSS:               mapRSSItem,
	model.SourceEmbeddedJSON:      mapJSONLD,
}

// 自由文本中的"像日期"片段，用于判断自然搜索结果/RSS 条目是否像一个活动
var dateLikeRe = regexp.MustCompile(`(?i)` +
	`\b(?:` + weekdayPattern + `\.?,?\s+)?` + monthPattern + `\.?\s+\d{1,2}(?:st|nd|rd|th)?\b(?:,?\s+\d{4}\b)?` +
	`|\b\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthPattern + `\b` +
	`|\b\d{1,2}[/.]\d{1,2}[/.]\d{2,4}\b` +
	`|\b\d{4}-\d{2}-\d{2}\b` +
	`|\b(?:today|tonight|tomorrow)\b` +
	`|\b(?:this|next|every)\s+` + weekdayPattern + `\b`)

var (
	clauseEndRe   = regexp.MustCompile(`[.|·\n!?]`)
	pricePhraseRe = regexp.MustCompile(`(?i)(?:` + currencyPattern + `)\s?\d+(?:[.,]\d+)*(?:\s*[-–]\s*(?:` + currencyPattern + `)?\s?\d+(?:[.,]\d+)*)?|\d+(?:[.,]\d+)*\s?(?:` + currencyPattern + `)|\b(?:free(?:\s+entry|\s+admission)?|no\s+cover|gratis|entrada\s+(?:franca|livre))\b`)
)

// Mapper 字段映射器：原始记录 -> 候选事件。无状态，可并发使用
type Mapper struct{}

func NewMapper() *Mapper { return &Mapper{} }

// Map 按 source_id 分派到固定的映射策略
func (m *Mapper) Map(rec *model.RawRecord) (*model.CandidateEvent, *model.Rejection) {
	fn, ok := mappers[rec.SourceID]
	if !ok {
		return nil, rejectRecord(rec, model.ReasonUnknownSource, "", fmt.Sprintf("no mapping for source %q", rec.SourceID))
	}
	return fn(rec)
}

func newCandidate(rec *model.RawRecord, ref string, confidence float64) *model.CandidateEvent {
	return &model.CandidateEvent{
		SourceID:   rec.SourceID,
		SourceRef:  ref,
		FetchedAt:  rec.FetchedAt,
		Confidence: confidence,
		Query:      rec.Query,
	}
}

func rejectRecord(rec *model.RawRecord, reason model.ReasonCode, ref, detail string) *model.Rejection {
	return &model.Rejection{
		Stage:     model.StageMapper,
		Reason:    reason,
		SourceID:  rec.SourceID,
		SourceRef: ref,
		Detail:    detail,
	}
}

func malformed(rec *model.RawRecord, err error) *model.Rejection {
	return rejectRecord(rec, model.ReasonMalformedPayload, "", err.Error())
}

// decodeJSON 解析 JSON 负载；失败返回 MALFORMED_PAYLOAD 拒绝
func decodeJSON(rec *model.RawRecord, v any) *model.Rejection {
	if err := json.Unmarshal(rec.Payload, v); err != nil {
		return malformed(rec, fmt.Errorf("decode %s payload: %w", rec.SourceID, err))
	}
	return nil
}

// nonEmpty 空白串视为未观察到
func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// firstNonNil 返回第一个非 nil 且非空白的值
func firstNonNil(vals ...*string) *string {
	for _, v := range vals {
		if v != nil && strings.TrimSpace(*v) != "" {
			return v
		}
	}
	return nil
}

// extractDatePhrase 在文本中找第一个像日期的片段，并带上到子句结束为止的尾部（通常含时刻）
func extractDatePhrase(texts ...*string) *string {
	for _, t := range texts {
		if t == nil {
			continue
		}
		s := stripHTML(*t)
		idx := dateLikeRe.FindStringIndex(s)
		if idx == nil {
			continue
		}
		end := idx[1]
		tail := s[end:]
		if len(tail) > datePhraseTail {
			tail = tail[:datePhraseTail]
		}
		if stop := clauseEndRe.FindStringIndex(tail); stop != nil {
			tail = tail[:stop[0]]
		}
		phrase := collapse(s[idx[0]:end] + tail)
		return &phrase
	}
	return nil
}

// extractPricePhrase 在文本中找价格片段
func extractPricePhrase(texts ...*string) *string {
	for _, t := range texts {
		if t == nil {
			continue
		}
		if m := pricePhraseRe.FindString(stripHTML(*t)); m != "" {
			m = strings.TrimSpace(m)
			return &m
		}
	}
	return nil
}
