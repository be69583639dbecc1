package model

import (
	"time"

	"gorm.io/datatypes"
)

// EventClean 对应 events_clean 表：去重后的最终事件
// (title_key, venue_key, event_day) 为业务唯一键，upsert 依此冲突
type EventClean struct {
	ID            uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	EventUUID     string         `gorm:"column:event_uuid;type:varchar(64);uniqueIndex;not null;comment:全局唯一ID"`
	Title         string         `gorm:"column:title;type:varchar(256);not null;comment:事件标题"`
	Description   *string        `gorm:"column:description;type:text;comment:描述"`
	TitleKey      string         `gorm:"column:title_key;type:varchar(256);not null;uniqueIndex:uq_events_clean_natural;comment:规范化标题键"`
	VenueKey      string         `gorm:"column:venue_key;type:varchar(256);not null;uniqueIndex:uq_events_clean_natural;comment:规范化场馆/地址键"`
	EventDay      time.Time      `gorm:"column:event_day;type:date;not null;uniqueIndex:uq_events_clean_natural;comment:活动日期"`
	StartTime     *time.Time     `gorm:"column:start_time;type:timestamptz;comment:开始时间（仅日期已知时为空）"`
	Venue         *string        `gorm:"column:venue;type:varchar(256);comment:场馆"`
	Address       *string        `gorm:"column:address;type:varchar(512);comment:地址"`
	City          string         `gorm:"column:city;type:varchar(128);index;comment:城市"`
	Country       string         `gorm:"column:country;type:varchar(128);comment:国家"`
	PriceCents    *int64         `gorm:"column:price_cents;type:bigint;comment:价格（最小货币单位）"`
	PriceCurrency *string        `gorm:"column:price_currency;type:varchar(8);comment:币种"`
	DanceStyles   datatypes.JSON `gorm:"column:dance_styles;type:jsonb;comment:舞种"`
	LiveBand      bool           `gorm:"column:live_band;type:boolean;default:false;comment:是否现场乐队"`
	ClassBefore   bool           `gorm:"column:class_before;type:boolean;default:false;comment:是否有课前教学"`
	Sources       datatypes.JSON `gorm:"column:sources;type:jsonb;not null;comment:来源溯源列表"`
	SourceCount   int            `gorm:"column:source_count;type:int;default:1;comment:来源数量"`
	RunUUID       string         `gorm:"column:run_uuid;type:varchar(64);index;comment:最近一次写入的运行ID"`
	CleanedAt     time.Time      `gorm:"column:cleaned_at;type:timestamp;comment:清洗时间"`
	CreatedAt     time.Time      `gorm:"column:created_at;type:timestamp;default:now();comment:创建时间"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;type:timestamp;default:now();comment:更新时间"`
}

// PipelineRun 对应 pipeline_runs 表：每次运行的统计
type PipelineRun struct {
	ID           uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	RunUUID      string         `gorm:"column:run_uuid;type:varchar(64);uniqueIndex;not null"`
	City         string         `gorm:"column:city;type:varchar(128);not null"`
	Country      string         `gorm:"column:country;type:varchar(128)"`
	Keyword      string         `gorm:"column:keyword;type:varchar(128)"`
	Status       string         `gorm:"column:status;type:varchar(16);not null"` // succeeded / failed
	RawRecords   int            `gorm:"column:raw_records;type:int;default:0"`
	Rejected     int            `gorm:"column:rejected;type:int;default:0"`
	Merged       int            `gorm:"column:merged;type:int;default:0"`
	Finalized    int            `gorm:"column:finalized;type:int;default:0"`
	FailedSource datatypes.JSON `gorm:"column:failed_sources;type:jsonb"`
	Report       datatypes.JSON `gorm:"column:report;type:jsonb"` // 按原因码聚合的拒绝统计
	Error        *string        `gorm:"column:error;type:text"`
	StartedAt    time.Time      `gorm:"column:started_at;type:timestamp;not null"`
	FinishedAt   time.Time      `gorm:"column:finished_at;type:timestamp;not null"`
}

// PipelineRejection 对应 pipeline_rejections 表：被拒绝的记录明细
type PipelineRejection struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	RunUUID   string    `gorm:"column:run_uuid;type:varchar(64);index;not null"`
	Stage     string    `gorm:"column:stage;type:varchar(16);not null"`
	Reason    string    `gorm:"column:reason;type:varchar(32);index;not null"`
	SourceID  string    `gorm:"column:source_id;type:varchar(32);not null"`
	SourceRef string    `gorm:"column:source_ref;type:varchar(512)"`
	Detail    string    `gorm:"column:detail;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:now()"`
}

func (EventClean) TableName() string        { return "events_clean" }
func (PipelineRun) TableName() string       { return "pipeline_runs" }
func (PipelineRejection) TableName() string { return "pipeline_rejections" }
