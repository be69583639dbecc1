package model

// ========== SerpAPI 响应结构（engine=google_events / google） ==========

// SerpAPIEventsResponse google_events 引擎根响应
type SerpAPIEventsResponse struct {
	EventsResults []rawJSON `json:"events_results"`
	Error         string    `json:"error"`
}

// SerpAPIOrganicResponse google 引擎根响应
type SerpAPIOrganicResponse struct {
	OrganicResults []rawJSON `json:"organic_results"`
	Error          string    `json:"error"`
}

// SerpAPIEventResult events_results 中的单条事件
type SerpAPIEventResult struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Link        string           `json:"link"`
	Date        SerpAPIEventDate `json:"date"`
	Address     []string         `json:"address"` // 通常为多行地址列表
	Venue       *struct {
		Name *string `json:"name"`
		Link string  `json:"link"`
	} `json:"venue"`
	TicketInfo []struct {
		Source   string `json:"source"`
		Link     string `json:"link"`
		LinkType string `json:"link_type"`
	} `json:"ticket_info"`
}

// SerpAPIEventDate 日期块：start_date 如 "Mar 14"，when 如 "Fri, Mar 14, 9 – 11 PM"
type SerpAPIEventDate struct {
	StartDate string `json:"start_date"`
	When      string `json:"when"`
}

// SerpAPIOrganicResult organic_results 中的单条结果
type SerpAPIOrganicResult struct {
	Position int     `json:"position"`
	Title    *string `json:"title"`
	Link     string  `json:"link"`
	Snippet  *string `json:"snippet"`
	Date     string  `json:"date"`
	Source   string  `json:"source"`
}
