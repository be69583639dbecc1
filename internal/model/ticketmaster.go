package model

import "encoding/json"

type rawJSON = json.RawMessage

// ========== Ticketmaster Discovery API v2 ==========

// TicketmasterResponse GET /discovery/v2/events.json 根响应
type TicketmasterResponse struct {
	Embedded struct {
		Events []rawJSON `json:"events"`
	} `json:"_embedded"`
	Links struct {
		Next struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
	Page struct {
		Size          int `json:"size"`
		TotalElements int `json:"totalElements"`
		TotalPages    int `json:"totalPages"`
		Number        int `json:"number"`
	} `json:"page"`
}

// TicketmasterEvent 单个事件
type TicketmasterEvent struct {
	ID         string  `json:"id"`
	Name       *string `json:"name"`
	Info       *string `json:"info"`
	PleaseNote *string `json:"pleaseNote"`
	URL        string  `json:"url"`
	Dates      struct {
		Start struct {
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
			DateTime  string `json:"dateTime"` // UTC
			DateTBD   bool   `json:"dateTBD"`
		} `json:"start"`
		Timezone string `json:"timezone"`
	} `json:"dates"`
	PriceRanges []struct {
		Type     string  `json:"type"`
		Currency string  `json:"currency"`
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
	} `json:"priceRanges"`
	Classifications []struct {
		Segment struct {
			Name string `json:"name"`
		} `json:"segment"`
	} `json:"classifications"`
	Embedded struct {
		Venues []TicketmasterVenue `json:"venues"`
	} `json:"_embedded"`
}

// TicketmasterVenue 场馆
type TicketmasterVenue struct {
	Name    *string `json:"name"`
	Address struct {
		Line1 *string `json:"line1"`
	} `json:"address"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	Country struct {
		Name string `json:"name"`
	} `json:"country"`
}
