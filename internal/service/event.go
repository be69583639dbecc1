package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"DanceSync/internal/model"
	"DanceSync/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrNotFound 查询对象不存在
var ErrNotFound = errors.New("not found")

// EventService 面向前端的事件与运行记录查询
type EventService struct {
	events repository.EventRepository
	runs   repository.RunRepository
	logger *logrus.Logger
}

func NewEventService(events repository.EventRepository, runs repository.RunRepository, logger *logrus.Logger) *EventService {
	return &EventService{events: events, runs: runs, logger: logger}
}

// EventView 事件对外视图
type EventView struct {
	EventUUID     string             `json:"event_uuid"`
	Title         string             `json:"title"`
	Description   *string            `json:"description,omitempty"`
	EventDay      string             `json:"event_day"`
	StartTime     *time.Time         `json:"start_time,omitempty"`
	Venue         *string            `json:"venue,omitempty"`
	Address       *string            `json:"address,omitempty"`
	City          string             `json:"city"`
	Country       string             `json:"country"`
	PriceCents    *int64             `json:"price_cents,omitempty"`
	PriceCurrency *string            `json:"price_currency,omitempty"`
	DanceStyles   []string           `json:"dance_styles"`
	LiveBand      bool               `json:"live_band"`
	ClassBefore   bool               `json:"class_before"`
	SourceCount   int                `json:"source_count"`
	Sources       []model.Provenance `json:"sources,omitempty"`
}

// EventListResult 列表返回
type EventListResult struct {
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Total    int64       `json:"total"`
	Items    []EventView `json:"items"`
}

// RunView 运行记录视图
type RunView struct {
	*model.PipelineRun
	Rejections []*model.PipelineRejection `json:"rejections"`
}

func (s *EventService) ListEvents(ctx context.Context, filter repository.EventFilter, page, pageSize int) (*EventListResult, error) {
	rows, total, err := s.events.ListEvents(ctx, filter, page, pageSize)
	if err != nil {
		return nil, err
	}
	items := make([]EventView, 0, len(rows))
	for _, row := range rows {
		// 列表不带来源明细
		items = append(items, s.view(row, false))
	}
	return &EventListResult{Page: page, PageSize: pageSize, Total: total, Items: items}, nil
}

func (s *EventService) GetEvent(ctx context.Context, eventUUID string) (*EventView, error) {
	row, err := s.events.GetEventByUUID(ctx, eventUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	v := s.view(row, true)
	return &v, nil
}

func (s *EventService) GetRun(ctx context.Context, runUUID string, rejectionLimit int) (*RunView, error) {
	run, err := s.runs.GetRun(ctx, runUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rejections, err := s.runs.ListRejections(ctx, runUUID, rejectionLimit)
	if err != nil {
		return nil, err
	}
	return &RunView{PipelineRun: run, Rejections: rejections}, nil
}

func (s *EventService) view(row *model.EventClean, withSources bool) EventView {
	v := EventView{
		EventUUID:     row.EventUUID,
		Title:         row.Title,
		Description:   row.Description,
		EventDay:      row.EventDay.Format(time.DateOnly),
		StartTime:     row.StartTime,
		Venue:         row.Venue,
		Address:       row.Address,
		City:          row.City,
		Country:       row.Country,
		PriceCents:    row.PriceCents,
		PriceCurrency: row.PriceCurrency,
		DanceStyles:   []string{},
		LiveBand:      row.LiveBand,
		ClassBefore:   row.ClassBefore,
		SourceCount:   row.SourceCount,
	}
	if len(row.DanceStyles) > 0 {
		if err := json.Unmarshal(row.DanceStyles, &v.DanceStyles); err != nil {
			s.logger.WithError(err).WithField("event_uuid", row.EventUUID).Warn("解析dance_styles失败")
		}
	}
	if withSources && len(row.Sources) > 0 {
		if err := json.Unmarshal(row.Sources, &v.Sources); err != nil {
			s.logger.WithError(err).WithField("event_uuid", row.EventUUID).Warn("解析sources失败")
		}
	}
	return v
}
