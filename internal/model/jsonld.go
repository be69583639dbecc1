package model

import "encoding/json"

// JSONLDEvent schema.org Event（HTML 中 <script type="application/ld+json"> 的内容）
// @type、location、offers 在不同站点上可能是字符串、对象或数组，保留原始 JSON 由映射器解析
type JSONLDEvent struct {
	Type        json.RawMessage `json:"@type"`
	ID          string          `json:"@id"`
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	StartDate   *string         `json:"startDate"`
	URL         string          `json:"url"`
	Location    json.RawMessage `json:"location"`
	Offers      json.RawMessage `json:"offers"`
}

// JSONLDPlace schema.org Place
type JSONLDPlace struct {
	Name    *string         `json:"name"`
	Address json.RawMessage `json:"address"` // 字符串或 PostalAddress
}

// JSONLDPostalAddress schema.org PostalAddress
type JSONLDPostalAddress struct {
	StreetAddress   string `json:"streetAddress"`
	AddressLocality string `json:"addressLocality"`
	AddressRegion   string `json:"addressRegion"`
	PostalCode      string `json:"postalCode"`
}

// JSONLDOffer schema.org Offer；price 可能是数字或字符串
type JSONLDOffer struct {
	Price         json.RawMessage `json:"price"`
	LowPrice      json.RawMessage `json:"lowPrice"`
	PriceCurrency string          `json:"priceCurrency"`
}
