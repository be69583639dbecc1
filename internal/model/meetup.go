package model

// MeetupEvent Meetup GraphQL 事件节点
type MeetupEvent struct {
	ID          string  `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DateTime    string  `json:"dateTime"` // 带偏移的 ISO-8601
	EventURL    string  `json:"eventUrl"`
	IsOnline    bool    `json:"isOnline"`
	Venue       *struct {
		Name    *string `json:"name"`
		Address *string `json:"address"`
		City    string  `json:"city"`
	} `json:"venue"`
	FeeSettings *struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"feeSettings"`
}
