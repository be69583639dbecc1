package pipeline

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"DanceSync/internal/model"
)

// mapRSSItem ev:startdate 存在时视为结构化条目；否则从标题/描述中抓取日期，置信度较低
func mapRSSItem(rec *model.RawRecord) (*model.CandidateEvent, *model.Rejection) {
	var item model.RSSItem
	if err := xml.Unmarshal(rec.Payload, &item); err != nil {
		return nil, malformed(rec, fmt.Errorf("decode rss item: %w", err))
	}
	ref := strings.TrimSpace(item.GUID)
	if ref == "" {
		ref = strings.TrimSpace(item.Link)
	}

	var start *string
	confidence := confidenceRSSStructured
	if item.StartDate != nil && strings.TrimSpace(*item.StartDate) != "" {
		start = item.StartDate
	} else {
		start = extractDatePhrase(item.Title, item.Description)
		confidence = confidenceRSSScraped
	}
	if start == nil {
		return nil, rejectRecord(rec, model.ReasonNotEventShaped, ref, "rss item without start date")
	}

	c := newCandidate(rec, ref, confidence)
	c.RawTitle = item.Title
	c.RawDescription = item.Description
	c.RawStart = start
	c.RawVenue = item.Location
	c.RawPrice = extractPricePhrase(item.Description)
	return c, nil
}

var errNoJSONLDEvent = errors.New("no schema.org Event in payload")

// mapJSONLD schema.org Event；负载可以是单个对象、数组或 @graph 包装
func mapJSONLD(rec *model.RawRecord) (*model.CandidateEvent, *model.Rejection) {
	ev, err := findJSONLDEvent(rec.Payload)
	if errors.Is(err, errNoJSONLDEvent) {
		return nil, rejectRecord(rec, model.ReasonNotEventShaped, "", err.Error())
	}
	if err != nil {
		return nil, malformed(rec, fmt.Errorf("decode json-ld: %w", err))
	}

	ref := ev.URL
	if ref == "" {
		ref = ev.ID
	}
	if ref == "" && ev.Name != nil && ev.StartDate != nil {
		ref = *ev.Name + "|" + *ev.StartDate
	}
	c := newCandidate(rec, ref, confidenceEmbeddedJSON)
	c.RawTitle = ev.Name
	c.RawDescription = ev.Description
	c.RawStart = ev.StartDate
	c.RawVenue, c.RawAddress = jsonLDLocation(ev.Location)
	c.RawPrice = jsonLDPrice(ev.Offers)
	return c, nil
}

func findJSONLDEvent(payload []byte) (*model.JSONLDEvent, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, errors.New("empty payload")
	}

	var nodes []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return nil, err
		}
	} else {
		var wrapper struct {
			Graph []json.RawMessage `json:"@graph"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, err
		}
		nodes = append([]json.RawMessage{trimmed}, wrapper.Graph...)
	}

	for _, n := range nodes {
		var ev model.JSONLDEvent
		if err := json.Unmarshal(n, &ev); err != nil {
			continue
		}
		if isEventType(ev.Type) {
			return &ev, nil
		}
	}
	return nil, errNoJSONLDEvent
}

// isEventType @type 为 Event 或其子类型（DanceEvent、MusicEvent……），可为字符串或数组
func isEventType(raw json.RawMessage) bool {
	var types []string
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		types = []string{one}
	} else if err := json.Unmarshal(raw, &types); err != nil {
		return false
	}
	for _, t := range types {
		t = strings.TrimPrefix(t, "schema:")
		t = strings.TrimPrefix(t, "http://schema.org/")
		t = strings.TrimPrefix(t, "https://schema.org/")
		if strings.HasSuffix(t, "Event") {
			return true
		}
	}
	return false
}

// jsonLDLocation location 可为 Place、Place 数组或纯文本
func jsonLDLocation(raw json.RawMessage) (venue, address *string) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return nil, nonEmpty(text)
	}
	var places []model.JSONLDPlace
	if err := json.Unmarshal(raw, &places); err != nil {
		var p model.JSONLDPlace
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, nil
		}
		places = []model.JSONLDPlace{p}
	}
	for _, p := range places {
		if p.Name == nil && len(p.Address) == 0 {
			continue
		}
		return p.Name, jsonLDAddress(p.Address)
	}
	return nil, nil
}

func jsonLDAddress(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return nonEmpty(text)
	}
	var pa model.JSONLDPostalAddress
	if err := json.Unmarshal(raw, &pa); err != nil {
		return nil
	}
	var parts []string
	for _, s := range []string{pa.StreetAddress, pa.AddressLocality, pa.AddressRegion, pa.PostalCode} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return nonEmpty(strings.Join(parts, ", "))
}

// jsonLDPrice 取所有 offer 中的最低价，拼成 "CUR 12.50" 交给规范化器解析
func jsonLDPrice(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var offers []model.JSONLDOffer
	if err := json.Unmarshal(raw, &offers); err != nil {
		var o model.JSONLDOffer
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil
		}
		offers = []model.JSONLDOffer{o}
	}
	var parts []string
	for _, o := range offers {
		for _, p := range []json.RawMessage{o.Price, o.LowPrice} {
			if v := jsonScalar(p); v != "" {
				parts = append(parts, strings.TrimSpace(o.PriceCurrency+" "+v))
				break
			}
		}
	}
	if len(parts) == 0 {
		return nil
	}
	// 多个报价交给 parsePrice 取最小值
	return nonEmpty(strings.Join(parts, " / "))
}

// jsonScalar 数字或字符串形式的标量
func jsonScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
