package model

import "encoding/xml"

// EventNamespace RSS 1.0 event 模块命名空间（ev:startdate / ev:location）
const EventNamespace = "http://purl.org/rss/1.0/modules/event/"

// RSSItem 单个 <item>
type RSSItem struct {
	XMLName     xml.Name `xml:"item"`
	Title       *string  `xml:"title"`
	Link        string   `xml:"link"`
	GUID        string   `xml:"guid"`
	Description *string  `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	StartDate   *string  `xml:"http://purl.org/rss/1.0/modules/event/ startdate"`
	Location    *string  `xml:"http://purl.org/rss/1.0/modules/event/ location"`
}
