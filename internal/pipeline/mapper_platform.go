package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"DanceSync/internal/model"
)

// mapTicketmaster dateTime 为 UTC 时间戳，优先使用；否则 localDate[T localTime] 按城市时区解释
func mapTicketmaster(rec *model.RawRecord) (*model.CandidateEvent, *model.Rejection) {
	var ev model.TicketmasterEvent
	if rej := decodeJSON(rec, &ev); rej != nil {
		return nil, rej
	}
	ref := ev.ID
	if ref == "" {
		ref = ev.URL
	}
	c := newCandidate(rec, ref, confidenceTicketmaster)
	c.RawTitle = ev.Name
	c.RawDescription = firstNonNil(ev.Info, ev.PleaseNote)

	start := ev.Dates.Start
	switch {
	case start.DateTime != "":
		c.RawStart = nonEmpty(start.DateTime)
	case start.LocalDate != "" && start.LocalTime != "":
		c.RawStart = nonEmpty(start.LocalDate + "T" + start.LocalTime)
	case start.LocalDate != "":
		c.RawStart = nonEmpty(start.LocalDate)
	}

	if len(ev.Embedded.Venues) > 0 {
		v := ev.Embedded.Venues[0]
		c.RawVenue = v.Name
		c.RawAddress = v.Address.Line1
	}

	if len(ev.PriceRanges) > 0 {
		low := ev.PriceRanges[0]
		for _, pr := range ev.PriceRanges[1:] {
			if pr.Min < low.Min {
				low = pr
			}
		}
		c.RawPrice = nonEmpty(strings.TrimSpace(low.Currency + " " + strconv.FormatFloat(low.Min, 'f', 2, 64)))
	}
	return c, nil
}

// mapEventbrite utc 优先（带 Z），否则 local 按城市时区解释
func mapEventbrite(rec *model.RawRecord) (*model.CandidateEvent, *model.Rejection) {
	var ev model.EventbriteEvent
	if rej := decodeJSON(rec, &ev); rej != nil {
		return nil, rej
	}
	ref := ev.ID
	if ref == "" {
		ref = ev.URL
	}
	c := newCandidate(rec, ref, confidenceEventbrite)
	c.RawTitle = ev.Name.Text
	c.RawDescription = ev.Description.Text
	if ev.Start.UTC != "" {
		c.RawStart = nonEmpty(ev.Start.UTC)
	} else {
		c.RawStart = nonEmpty(ev.Start.Local)
	}
	if ev.Venue != nil {
		c.RawVenue = ev.Venue.Name
		c.RawAddress = ev.Venue.Address.LocalizedAddressDisplay
	}
	switch {
	case ev.IsFree:
		c.RawPrice = model.StringPtr("Free")
	case ev.TicketAvailability != nil && ev.TicketAvailability.MinimumTicketPrice != nil:
		p := ev.TicketAvailability.MinimumTicketPrice
		if p.MajorValue != "" {
			c.RawPrice = nonEmpty(p.Currency + " " + p.MajorValue)
		} else {
			c.RawPrice = nonEmpty(p.Display)
		}
	}
	return c, nil
}

// mapMeetup dateTime 带偏移；无 feeSettings 表示未观察到价格
func mapMeetup(rec *model.RawRecord) (*model.CandidateEvent, *model.Rejection) {
	var ev model.MeetupEvent
	if rej := decodeJSON(rec, &ev); rej != nil {
		return nil, rej
	}
	ref := ev.ID
	if ref == "" {
		ref = ev.EventURL
	}
	c := newCandidate(rec, ref, confidenceMeetup)
	c.RawTitle = ev.Title
	c.RawDescription = ev.Description
	c.RawStart = nonEmpty(ev.DateTime)
	if ev.Venue != nil {
		c.RawVenue = ev.Venue.Name
		c.RawAddress = ev.Venue.Address
	}
	if ev.FeeSettings != nil {
		if ev.FeeSettings.Amount == 0 {
			c.RawPrice = model.StringPtr("Free")
		} else {
			c.RawPrice = nonEmpty(fmt.Sprintf("%s %.2f", ev.FeeSettings.Currency, ev.FeeSettings.Amount))
		}
	}
	return c, nil
}
