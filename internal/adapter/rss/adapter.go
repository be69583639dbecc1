package rss

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"DanceSync/internal/adapter"
	"DanceSync/internal/config"
	"DanceSync/internal/interfaces"
	"DanceSync/internal/model"
	"DanceSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

const Name = "rss"

func init() {
	adapter.Register(Name, New)
}

type Adapter struct {
	cfg     *config.SourceConfig
	fetcher *httpclient.Fetcher
	logger  *logrus.Logger
	now     func() time.Time
}

func New(cfg *config.SourceConfig, logger *logrus.Logger) interfaces.SourceAdapter {
	return &Adapter{
		cfg:     cfg,
		fetcher: httpclient.NewFetcher(cfg, logger),
		logger:  logger,
		now:     time.Now,
	}
}

func (a *Adapter) GetName() string { return Name }

// FetchRecords 逐个拉取配置的订阅地址，每个 <item> 一条记录；单个订阅失败不影响其它订阅
func (a *Adapter) FetchRecords(ctx context.Context, query model.QueryContext) ([]*model.RawRecord, error) {
	var (
		records []*model.RawRecord
		failed  int
		lastErr error
	)
	for _, feed := range a.cfg.Feeds {
		feed = expandFeedURL(feed, query)
		body, err := a.fetcher.Get(ctx, feed)
		if err == nil {
			var items [][]byte
			items, err = SplitItems(body)
			if err == nil {
				fetchedAt := a.now().UTC()
				for _, item := range items {
					records = append(records, &model.RawRecord{
						SourceID:  model.SourceRSS,
						Payload:   item,
						FetchedAt: fetchedAt,
						Query:     query,
					})
				}
				a.logger.WithFields(logrus.Fields{"feed": feed, "items": len(items)}).Debug("RSS 订阅拉取完成")
				continue
			}
		}
		failed++
		lastErr = err
		a.logger.WithError(err).WithField("feed", feed).Warn("RSS 订阅拉取失败")
	}
	if failed > 0 && failed == len(a.cfg.Feeds) {
		return nil, fmt.Errorf("全部 %d 个 RSS 订阅拉取失败: %w", failed, lastErr)
	}
	return records, nil
}

// expandFeedURL 订阅地址支持 {city} {keyword} 占位
func expandFeedURL(feed string, query model.QueryContext) string {
	return strings.NewReplacer(
		"{city}", query.City,
		"{keyword}", query.Keyword,
	).Replace(feed)
}

// SplitItems 把订阅文档拆成独立的 <item> 片段；祖先元素上声明的命名空间前缀挂到每个 item 上，保证片段可独立解析
func SplitItems(doc []byte) ([][]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = false
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) { return input, nil }

	namespaces := make(map[string]string)
	var items [][]byte
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("解析订阅失败: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Space == "xmlns" {
				namespaces[attr.Name.Local] = attr.Value
			}
		}
		if start.Name.Local != "item" {
			continue
		}

		var inner struct {
			Body []byte `xml:",innerxml"`
		}
		if err := dec.DecodeElement(&inner, &start); err != nil {
			return nil, fmt.Errorf("解析 item 失败: %w", err)
		}
		items = append(items, wrapItem(inner.Body, namespaces))
	}
	return items, nil
}

func wrapItem(body []byte, namespaces map[string]string) []byte {
	var buf bytes.Buffer
	buf.WriteString("<item")
	for _, prefix := range sortedKeys(namespaces) {
		buf.WriteString(" xmlns:")
		buf.WriteString(prefix)
		buf.WriteString(`="`)
		_ = xml.EscapeText(&buf, []byte(namespaces[prefix]))
		buf.WriteString(`"`)
	}
	buf.WriteString(">")
	buf.Write(body)
	buf.WriteString("</item>")
	return buf.Bytes()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
