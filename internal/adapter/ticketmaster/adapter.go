package ticketmaster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"DanceSync/internal/adapter"
	"DanceSync/internal/config"
	"DanceSync/internal/interfaces"
	"DanceSync/internal/model"
	"DanceSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

const (
	Name = "ticketmaster"

	defaultBaseURL = "https://app.ticketmaster.com"
	eventsPath     = "/discovery/v2/events.json"
	pageSize       = "200"
	// Discovery API 深翻页上限为 size*page < 1000
	maxPages = 5
)

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

// FetchRecords Dance 分类整段拉取，再按关键词补充召回；按事件 ID 去重
func (a *Adapter) FetchRecords(ctx context.Context, query model.QueryContext) ([]*model.RawRecord, error) {
	searches := []url.Values{a.params(query, "classificationName", "Dance")}
	if query.Keyword != "" {
		searches = append(searches, a.params(query, "keyword", query.Keyword))
	}

	seen := make(map[string]bool)
	var records []*model.RawRecord
	for i, params := range searches {
		events, err := a.fetchPages(ctx, params)
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("Ticketmaster 拉取失败: %w", err)
			}
			a.logger.WithError(err).WithField("keyword", query.Keyword).Warn("Ticketmaster 关键词拉取失败")
			continue
		}
		fetchedAt := a.now().UTC()
		for _, raw := range events {
			var head struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(raw, &head); err == nil && head.ID != "" {
				if seen[head.ID] {
					continue
				}
				seen[head.ID] = true
			}
			records = append(records, &model.RawRecord{
				SourceID:  model.SourceTicketmaster,
				Payload:   []byte(raw),
				FetchedAt: fetchedAt,
				Query:     query,
			})
		}
	}

	a.logger.WithFields(logrus.Fields{
		"city":    query.City,
		"keyword": query.Keyword,
		"events":  len(records),
	}).Info("Ticketmaster 拉取完成")
	return records, nil
}

// fetchPages 沿 _links.next 翻页
func (a *Adapter) fetchPages(ctx context.Context, params url.Values) ([]json.RawMessage, error) {
	var events []json.RawMessage
	next := a.baseURL() + eventsPath + "?" + params.Encode()
	for page := 0; page < maxPages && next != ""; page++ {
		var resp model.TicketmasterResponse
		if err := a.fetcher.GetJSON(ctx, next, &resp); err != nil {
			if page > 0 {
				a.logger.WithError(err).WithField("page", page).Warn("Ticketmaster 翻页失败，保留已拉取结果")
				break
			}
			return nil, err
		}
		events = append(events, resp.Embedded.Events...)

		next = ""
		if href := resp.Links.Next.Href; href != "" {
			u, err := a.resolve(href)
			if err != nil {
				a.logger.WithError(err).WithField("href", href).Warn("Ticketmaster next 链接无法解析")
				break
			}
			next = u
		}
	}
	return events, nil
}

func (a *Adapter) params(query model.QueryContext, key, value string) url.Values {
	params := url.Values{}
	params.Set("apikey", a.cfg.APIKey)
	params.Set(key, value)
	params.Set("size", pageSize)
	params.Set("sort", "date,asc")
	if query.City != "" {
		params.Set("city", query.City)
	}
	if query.CountryCode != "" {
		params.Set("countryCode", strings.ToUpper(query.CountryCode))
	}
	if !query.Window.From.IsZero() {
		params.Set("startDateTime", query.Window.From.String()+"T00:00:00Z")
	}
	if !query.Window.To.IsZero() {
		params.Set("endDateTime", query.Window.To.String()+"T23:59:59Z")
	}
	return params
}

// resolve next 链接是相对路径且不带 apikey
func (a *Adapter) resolve(href string) (string, error) {
	base, err := url.Parse(a.baseURL() + "/")
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	u := base.ResolveReference(ref)
	q := u.Query()
	if q.Get("apikey") == "" {
		q.Set("apikey", a.cfg.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *Adapter) baseURL() string {
	if a.cfg.BaseURL == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(a.cfg.BaseURL, "/")
}
