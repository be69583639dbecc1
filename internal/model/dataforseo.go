package model

// ========== DataForSEO SERP 结构（live/advanced 返回的 items） ==========

// DataForSEOOrganicItem type=organic 的条目
type DataForSEOOrganicItem struct {
	Type        string  `json:"type"`
	RankGroup   int     `json:"rank_group"`
	Title       *string `json:"title"`
	URL         string  `json:"url"`
	Description *string `json:"description"`
	Timestamp   string  `json:"timestamp"`
}

// DataForSEOEventItem type=event_item 的条目（Google Events SERP）
type DataForSEOEventItem struct {
	Type        string  `json:"type"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	EventDates  *struct {
		StartDatetime  *string `json:"start_datetime"`
		EndDatetime    *string `json:"end_datetime"`
		DisplayedDates *string `json:"displayed_dates"`
	} `json:"event_dates"`
	LocationInfo *struct {
		Name    *string `json:"name"`
		Address *string `json:"address"`
		URL     string  `json:"url"`
	} `json:"location_info"`
}
