package interfaces

import (
	"context"

	"DanceSync/internal/config"
	"DanceSync/internal/model"

	"github.com/sirupsen/logrus"
)

// SourceAdapter 所有数据源必须实现的核心接口（只做 I/O，不做解析）
type SourceAdapter interface {
	GetName() string                                                                        // 数据源名称（与 sources 配置键一致）
	FetchRecords(ctx context.Context, query model.QueryContext) ([]*model.RawRecord, error) // 按查询上下文抓取原始记录
}

// Factory 数据源适配器工厂函数签名
// 入参：数据源配置、日志实例
// 出参：实现SourceAdapter接口的适配器实例
type Factory func(cfg *config.SourceConfig, logger *logrus.Logger) SourceAdapter

// EventSink 规范事件落库接口
type EventSink interface {
	UpsertEvents(ctx context.Context, runUUID string, events []*model.CanonicalEvent) error
}

// RunRecorder 运行记录与拒绝明细落库接口
type RunRecorder interface {
	SaveRun(ctx context.Context, run *model.PipelineRun) error
	SaveRejections(ctx context.Context, runUUID string, rejections []*model.Rejection) error
}

// Publisher 运行结果对外投递（Kafka 等）
type Publisher interface {
	PublishEvents(ctx context.Context, runUUID string, events []*model.CanonicalEvent) error
	PublishRejections(ctx context.Context, runUUID string, rejections []*model.Rejection) error
	Close() error
}
