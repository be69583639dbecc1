package model

// EventbriteEvent Eventbrite API v3 事件（expand=venue,ticket_availability）
type EventbriteEvent struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name struct {
		Text *string `json:"text"`
	} `json:"name"`
	Description struct {
		Text *string `json:"text"`
	} `json:"description"`
	Start struct {
		Timezone string `json:"timezone"`
		Local    string `json:"local"`
		UTC      string `json:"utc"`
	} `json:"start"`
	IsFree      bool `json:"is_free"`
	OnlineEvent bool `json:"online_event"`
	Venue       *struct {
		Name    *string `json:"name"`
		Address struct {
			LocalizedAddressDisplay *string `json:"localized_address_display"`
		} `json:"address"`
	} `json:"venue"`
	TicketAvailability *struct {
		MinimumTicketPrice *struct {
			Currency   string `json:"currency"`
			MajorValue string `json:"major_value"`
			Display    string `json:"display"`
		} `json:"minimum_ticket_price"`
	} `json:"ticket_availability"`
}
