package serpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
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
	Name = "serpapi"

	defaultBaseURL = "https://serpapi.com"
	// google_events 每页 10 条
	eventsPageSize = 10
	maxEventPages  = 3

	// 未给关键词时的默认检索式
	defaultEventsQuery = `bachata OR kizomba OR salsa OR "coast swing" OR "cha cha" OR ballroom OR hustle OR zouk OR samba OR forro OR "social dance"`
)

// 搜索无结果时 SerpAPI 在 error 字段返回此提示，属于正常空结果
const noResultsPrefix = "Google hasn't returned any results"

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

// FetchRecords 拉取 google_events 结果与自然搜索结果；两者都失败才返回错误
func (a *Adapter) FetchRecords(ctx context.Context, query model.QueryContext) ([]*model.RawRecord, error) {
	events, eventsErr := a.fetchEvents(ctx, query)
	if eventsErr != nil {
		a.logger.WithError(eventsErr).WithField("city", query.City).Warn("SerpAPI events 拉取失败")
	}
	organic, organicErr := a.fetchOrganic(ctx, query)
	if organicErr != nil {
		a.logger.WithError(organicErr).WithField("city", query.City).Warn("SerpAPI organic 拉取失败")
	}
	if eventsErr != nil && organicErr != nil {
		return nil, fmt.Errorf("SerpAPI 拉取失败: %w", eventsErr)
	}

	records := append(events, organic...)
	a.logger.WithFields(logrus.Fields{
		"city":    query.City,
		"keyword": query.Keyword,
		"events":  len(events),
		"organic": len(organic),
	}).Info("SerpAPI 拉取完成")
	return records, nil
}

func (a *Adapter) fetchEvents(ctx context.Context, query model.QueryContext) ([]*model.RawRecord, error) {
	var records []*model.RawRecord
	for page := 0; page < maxEventPages; page++ {
		params := a.baseParams(query)
		params.Set("engine", "google_events")
		params.Set("q", eventsQuery(query))
		if page > 0 {
			params.Set("start", strconv.Itoa(page*eventsPageSize))
		}

		var resp model.SerpAPIEventsResponse
		if err := a.fetcher.GetJSON(ctx, a.searchURL(params), &resp); err != nil {
			if page > 0 {
				// 后续页失败时保留已拿到的结果
				a.logger.WithError(err).WithField("page", page).Warn("SerpAPI events 翻页失败")
				break
			}
			return nil, err
		}
		if err := responseError(resp.Error); err != nil {
			return nil, err
		}
		fetchedAt := a.now().UTC()
		for _, raw := range resp.EventsResults {
			records = append(records, record(model.SourceSerpAPIEvents, raw, fetchedAt, query))
		}
		if len(resp.EventsResults) < eventsPageSize {
			break
		}
	}
	return records, nil
}

func (a *Adapter) fetchOrganic(ctx context.Context, query model.QueryContext) ([]*model.RawRecord, error) {
	params := a.baseParams(query)
	params.Set("engine", "google")
	params.Set("q", organicQuery(query))

	var resp model.SerpAPIOrganicResponse
	if err := a.fetcher.GetJSON(ctx, a.searchURL(params), &resp); err != nil {
		return nil, err
	}
	if err := responseError(resp.Error); err != nil {
		return nil, err
	}
	fetchedAt := a.now().UTC()
	records := make([]*model.RawRecord, 0, len(resp.OrganicResults))
	for _, raw := range resp.OrganicResults {
		records = append(records, record(model.SourceSerpAPIOrganic, raw, fetchedAt, query))
	}
	return records, nil
}

func (a *Adapter) baseParams(query model.QueryContext) url.Values {
	params := url.Values{}
	params.Set("api_key", a.cfg.APIKey)
	if loc := canonicalLocation(query); loc != "" {
		params.Set("uule", uule(loc))
	}
	if query.Language != "" {
		params.Set("hl", query.Language)
	}
	if query.CountryCode != "" {
		params.Set("gl", strings.ToLower(query.CountryCode))
	}
	return params
}

func (a *Adapter) searchURL(params url.Values) string {
	base := strings.TrimRight(a.cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/search.json?" + params.Encode()
}

func record(source model.SourceID, raw json.RawMessage, fetchedAt time.Time, query model.QueryContext) *model.RawRecord {
	return &model.RawRecord{
		SourceID:  source,
		Payload:   []byte(raw),
		FetchedAt: fetchedAt,
		Query:     query,
	}
}

func responseError(msg string) error {
	if msg == "" || strings.HasPrefix(msg, noResultsPrefix) {
		return nil
	}
	return fmt.Errorf("SerpAPI 返回错误: %s", msg)
}

func eventsQuery(query model.QueryContext) string {
	if query.Keyword == "" {
		return defaultEventsQuery
	}
	return query.Keyword + " events in " + query.City
}

func organicQuery(query model.QueryContext) string {
	kw := query.Keyword
	if kw == "" {
		kw = "dance"
	}
	return kw + " social " + query.City + " this week"
}

func canonicalLocation(query model.QueryContext) string {
	switch {
	case query.City == "":
		return ""
	case query.Country == "":
		return query.City
	default:
		return query.City + "," + query.Country
	}
}

const uuleKeys = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// uule Google 的规范地名编码：w+CAIQICI + 长度字符 + base64(地名)
func uule(canonicalName string) string {
	n := len(canonicalName)
	if n >= len(uuleKeys) {
		canonicalName = canonicalName[:len(uuleKeys)-1]
		n = len(canonicalName)
	}
	return "w+CAIQICI" + string(uuleKeys[n]) + base64.StdEncoding.EncodeToString([]byte(canonicalName))
}
