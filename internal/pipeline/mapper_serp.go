package pipeline

import (
	"strings"

	"DanceSync/internal/model"
)

// mapSerpAPIEvent google_events 结果：start_date 给日期，when 常带时刻
func mapSerpAPIEvent(rec *model.RawRecord) (*model.CandidateEvent, *model.Rejection) {
	var ev model.SerpAPIEventResult
	if rej := decodeJSON(rec, &ev); rej != nil {
		return nil, rej
	}
	ref := ev.Link
	if ref == "" && ev.Title != nil {
		ref = *ev.Title + "|" + ev.Date.StartDate
	}
	c := newCandidate(rec, ref, confidenceSerpEvents)
	c.RawTitle = ev.Title
	c.RawDescription = ev.Description
	c.RawStart = serpStart(ev.Date.StartDate, ev.Date.When)
	if ev.Venue != nil {
		c.RawVenue = ev.Venue.Name
	}
	if len(ev.Address) > 0 {
		c.RawAddress = nonEmpty(strings.Join(ev.Address, ", "))
	}
	c.RawPrice = extractPricePhrase(ev.Description)
	return c, nil
}

// serpStart 组合 start_date 与 when：when 带时刻时优先使用，并在其缺少日期时补上 start_date
func serpStart(startDate, when string) *string {
	startDate, when = strings.TrimSpace(startDate), strings.TrimSpace(when)
	switch {
	case when != "" && hasTimeInfo(when):
		if startDate != "" && !strings.Contains(strings.ToLower(when), strings.ToLower(startDate)) {
			return nonEmpty(startDate + " " + when)
		}
		return nonEmpty(when)
	case startDate != "":
		return nonEmpty(startDate)
	default:
		return nonEmpty(when)
	}
}

func hasTimeInfo(s string) bool {
	if strings.ContainsAny(s, ":–-") {
		return true
	}
	u := strings.ToUpper(s)
	return strings.Contains(u, "AM") || strings.Contains(u, "PM")
}

// mapSerpAPIOrganic 自然搜索结果：没有任何像日期的片段就不是活动
func mapSerpAPIOrganic(rec *model.RawRecord) (*model.CandidateEvent, *model.Rejection) {
	var r model.SerpAPIOrganicResult
	if rej := decodeJSON(rec, &r); rej != nil {
		return nil, rej
	}
	return organicCandidate(rec, r.Link, r.Title, r.Snippet)
}

func mapDataForSEOOrganic(rec *model.RawRecord) (*model.CandidateEvent, *model.Rejection) {
	var item model.DataForSEOOrganicItem
	if rej := decodeJSON(rec, &item); rej != nil {
		return nil, rej
	}
	return organicCandidate(rec, item.URL, item.Title, item.Description)
}

func organicCandidate(rec *model.RawRecord, link string, title, snippet *string) (*model.CandidateEvent, *model.Rejection) {
	start := extractDatePhrase(title, snippet)
	if start == nil {
		return nil, rejectRecord(rec, model.ReasonNotEventShaped, link, "no date-like token in title or snippet")
	}
	c := newCandidate(rec, link, confidenceSerpOrganic)
	c.RawTitle = title
	c.RawDescription = snippet
	c.RawStart = start
	c.RawPrice = extractPricePhrase(snippet, title)
	return c, nil
}

// mapDataForSEOEvent event_item：start_datetime 为带偏移的时间，缺失时退回 displayed_dates
func mapDataForSEOEvent(rec *model.RawRecord) (*model.CandidateEvent, *model.Rejection) {
	var item model.DataForSEOEventItem
	if rej := decodeJSON(rec, &item); rej != nil {
		return nil, rej
	}
	c := newCandidate(rec, item.URL, confidenceSerpEvents)
	c.RawTitle = item.Title
	c.RawDescription = item.Description
	if item.EventDates != nil {
		c.RawStart = firstNonNil(item.EventDates.StartDatetime, item.EventDates.DisplayedDates)
	}
	if item.LocationInfo != nil {
		c.RawVenue = item.LocationInfo.Name
		c.RawAddress = item.LocationInfo.Address
	}
	c.RawPrice = extractPricePhrase(item.Description)
	return c, nil
}
