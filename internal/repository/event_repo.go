package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"DanceSync/internal/interfaces"
	"DanceSync/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventFilter 事件列表筛选
type EventFilter struct {
	City     string     // 城市（精确匹配，不区分大小写）
	Country  string     // 国家
	Style    string     // 舞种，如 Salsa
	FromDay  *time.Time // 活动日期起（含）
	ToDay    *time.Time // 活动日期止（含）
	LiveBand *bool
}

// EventRepository events_clean 仓储
type EventRepository interface {
	interfaces.EventSink
	ListEvents(ctx context.Context, filter EventFilter, page, pageSize int) ([]*model.EventClean, int64, error)
	GetEventByUUID(ctx context.Context, eventUUID string) (*model.EventClean, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// 冲突时覆盖的列；event_uuid 与 created_at 保留首次写入的值，sources 另行合并
var upsertColumns = []string{
	"title", "description", "start_time", "venue", "address", "city", "country",
	"price_cents", "price_currency", "dance_styles", "live_band", "class_before",
	"run_uuid", "cleaned_at", "updated_at",
}

// mergedSourcesSQL 已存来源与本次来源取并集（去重）；同一关键词或城市的多次运行不丢溯源
const mergedSourcesSQL = `(SELECT COALESCE(jsonb_agg(DISTINCT s.elem), '[]'::jsonb) ` +
	`FROM jsonb_array_elements("events_clean"."sources" || "excluded"."sources") AS s(elem))`

func upsertClause() clause.OnConflict {
	set := clause.AssignmentColumns(upsertColumns)
	set = append(set,
		clause.Assignment{Column: clause.Column{Name: "sources"}, Value: gorm.Expr(mergedSourcesSQL)},
		clause.Assignment{Column: clause.Column{Name: "source_count"}, Value: gorm.Expr("jsonb_array_length(" + mergedSourcesSQL + ")")},
	)
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "title_key"}, {Name: "venue_key"}, {Name: "event_day"}},
		DoUpdates: set,
	}
}

// UpsertEvents 一个批次一个事务，按 (title_key, venue_key, event_day) upsert
func (r *eventRepository) UpsertEvents(ctx context.Context, runUUID string, events []*model.CanonicalEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows, err := ToEventRows(runUUID, events, time.Now().UTC())
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(upsertClause()).Create(&rows).Error; err != nil {
			return fmt.Errorf("写入events_clean失败: %w", err)
		}
		return nil
	})
}

// ToEventRows 规范事件 -> events_clean 行
func ToEventRows(runUUID string, events []*model.CanonicalEvent, cleanedAt time.Time) ([]*model.EventClean, error) {
	rows := make([]*model.EventClean, 0, len(events))
	for _, ev := range events {
		sources, err := json.Marshal(ev.SortedSources())
		if err != nil {
			return nil, fmt.Errorf("序列化sources失败: %w", err)
		}
		styles := ev.DanceStyles
		if styles == nil {
			styles = []string{}
		}
		styleJSON, err := json.Marshal(styles)
		if err != nil {
			return nil, fmt.Errorf("序列化dance_styles失败: %w", err)
		}
		rows = append(rows, &model.EventClean{
			EventUUID:     uuid.NewString(),
			Title:         ev.Title,
			Description:   ev.Description,
			TitleKey:      ev.Key.TitleKey,
			VenueKey:      ev.Key.VenueKey,
			EventDay:      ev.Key.EventDay.In(time.UTC),
			StartTime:     ev.StartAt,
			Venue:         ev.VenueName,
			Address:       ev.Address,
			City:          ev.City,
			Country:       ev.Country,
			PriceCents:    ev.PriceCents,
			PriceCurrency: ev.PriceCurrency,
			DanceStyles:   datatypes.JSON(styleJSON),
			LiveBand:      ev.LiveBand,
			ClassBefore:   ev.ClassBefore,
			Sources:       datatypes.JSON(sources),
			SourceCount:   len(ev.Sources),
			RunUUID:       runUUID,
			CleanedAt:     cleanedAt,
			UpdatedAt:     cleanedAt,
		})
	}
	return rows, nil
}

// ListEvents 按过滤条件分页查询事件
func (r *eventRepository) ListEvents(ctx context.Context, filter EventFilter, page, pageSize int) ([]*model.EventClean, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	db := applyEventFilter(r.db.WithContext(ctx).Model(&model.EventClean{}), filter)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var events []*model.EventClean
	if err := db.
		Order("event_day ASC").Order("start_time ASC NULLS LAST").Order("id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func applyEventFilter(db *gorm.DB, filter EventFilter) *gorm.DB {
	if filter.City != "" {
		db = db.Where("LOWER(city) = LOWER(?)", filter.City)
	}
	if filter.Country != "" {
		db = db.Where("LOWER(country) = LOWER(?)", filter.Country)
	}
	if filter.Style != "" {
		style, _ := json.Marshal([]string{filter.Style})
		db = db.Where("dance_styles @> ?", datatypes.JSON(style))
	}
	if filter.FromDay != nil {
		db = db.Where("event_day >= ?", *filter.FromDay)
	}
	if filter.ToDay != nil {
		db = db.Where("event_day <= ?", *filter.ToDay)
	}
	if filter.LiveBand != nil {
		db = db.Where("live_band = ?", *filter.LiveBand)
	}
	return db
}

// GetEventByUUID 通过 event_uuid 获取事件
func (r *eventRepository) GetEventByUUID(ctx context.Context, eventUUID string) (*model.EventClean, error) {
	var event model.EventClean
	if err := r.db.WithContext(ctx).
		Where("event_uuid = ?", eventUUID).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
