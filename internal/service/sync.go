package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"DanceSync/internal/config"
	"DanceSync/internal/interfaces"
	"DanceSync/internal/metrics"
	"DanceSync/internal/model"
	"DanceSync/internal/pipeline"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// RunSummary 单次查询运行的结果
type RunSummary struct {
	RunUUID       string                   `json:"run_uuid"`
	Query         model.QueryContext       `json:"query"`
	Status        string                   `json:"status"`
	RawRecords    int                      `json:"raw_records"`
	Accepted      int                      `json:"accepted"`
	Rejected      int                      `json:"rejected"`
	ByReason      map[model.ReasonCode]int `json:"by_reason"`
	Merged        int                      `json:"merged"`
	Finalized     int                      `json:"finalized"`
	FailedSources []string                 `json:"failed_sources"`
	Error         string                   `json:"error,omitempty"`
	StartedAt     time.Time                `json:"started_at"`
	FinishedAt    time.Time                `json:"finished_at"`
}

// SyncOptions 同步服务参数
type SyncOptions struct {
	BatchSize int
	Cities    []config.City
	Window    func(now time.Time) model.DateWindow // 为 RunCities 生成日期窗口，now 已转换到城市时区；nil 表示不限
}

// SyncService 抓取 -> 清洗管道 -> 落库 -> 投递
type SyncService struct {
	adapters  []interfaces.SourceAdapter
	pipeline  *pipeline.Pipeline
	sink      interfaces.EventSink
	runs      interfaces.RunRecorder
	publisher interfaces.Publisher
	metrics   *metrics.Metrics
	opts      SyncOptions
	logger    *logrus.Logger
	now       func() time.Time
}

func NewSyncService(
	adapters []interfaces.SourceAdapter,
	pipe *pipeline.Pipeline,
	sink interfaces.EventSink,
	runs interfaces.RunRecorder,
	publisher interfaces.Publisher,
	m *metrics.Metrics,
	opts SyncOptions,
	logger *logrus.Logger,
) *SyncService {
	return &SyncService{
		adapters:  adapters,
		pipeline:  pipe,
		sink:      sink,
		runs:      runs,
		publisher: publisher,
		metrics:   m,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// RunQuery 对一个查询上下文执行完整运行。数据源失败只降低覆盖率；管道不变量错误或落库失败使运行失败
func (s *SyncService) RunQuery(ctx context.Context, query model.QueryContext) (*RunSummary, error) {
	summary := &RunSummary{
		RunUUID:   uuid.NewString(),
		Query:     query,
		StartedAt: s.now().UTC(),
		ByReason:  map[model.ReasonCode]int{},
	}
	log := s.logger.WithFields(logrus.Fields{
		"run_uuid": summary.RunUUID,
		"city":     query.City,
		"keyword":  query.Keyword,
	})

	records, failed := s.fetchAll(ctx, query)
	summary.RawRecords = len(records)
	summary.FailedSources = failed
	if err := ctx.Err(); err != nil {
		return s.fail(ctx, summary, log, fmt.Errorf("抓取阶段被取消: %w", err))
	}
	log.WithFields(logrus.Fields{"records": len(records), "failed_sources": failed}).Info("数据源抓取完成")

	res, err := s.pipeline.Run(ctx, records)
	if err != nil {
		return s.fail(ctx, summary, log, fmt.Errorf("清洗管道失败: %w", err))
	}
	report := res.Report.Summary()
	summary.Accepted = report.Accepted
	summary.Rejected = report.Rejected
	summary.ByReason = report.ByReason
	summary.Merged = res.Stats.MergedExact + res.Stats.MergedFuzzy + res.Stats.Cascaded
	summary.Finalized = len(res.Events)

	for i, batch := range pipeline.Batches(res.Events, s.opts.BatchSize) {
		if err := s.sink.UpsertEvents(ctx, summary.RunUUID, batch); err != nil {
			return s.fail(ctx, summary, log, fmt.Errorf("第%d批落库失败: %w", i+1, err))
		}
	}

	rejections := res.Report.Rejections()
	if err := s.runs.SaveRejections(ctx, summary.RunUUID, rejections); err != nil {
		log.WithError(err).Warn("保存拒绝明细失败")
	}
	summary.Status = RunSucceeded
	summary.FinishedAt = s.now().UTC()
	if err := s.runs.SaveRun(ctx, s.runRow(summary, report, res.Stats)); err != nil {
		log.WithError(err).Warn("保存运行记录失败")
	}

	if err := s.publisher.PublishEvents(ctx, summary.RunUUID, res.Events); err != nil {
		log.WithError(err).Warn("投递事件失败")
	}
	if err := s.publisher.PublishRejections(ctx, summary.RunUUID, rejections); err != nil {
		log.WithError(err).Warn("投递拒绝明细失败")
	}

	s.metrics.Rejected(report.ByReason)
	s.metrics.Merged(res.Stats.MergedExact, res.Stats.MergedFuzzy, res.Stats.Cascaded)
	s.metrics.Finalized(len(res.Events))
	s.metrics.RunFinished(RunSucceeded, summary.FinishedAt.Sub(summary.StartedAt))

	log.WithFields(logrus.Fields{
		"accepted":  summary.Accepted,
		"rejected":  summary.Rejected,
		"merged":    summary.Merged,
		"finalized": summary.Finalized,
	}).Info("运行完成")
	return summary, nil
}

// fetchAll 并发调用全部适配器；结果按适配器顺序拼接，保证输入顺序确定
func (s *SyncService) fetchAll(ctx context.Context, query model.QueryContext) ([]*model.RawRecord, []string) {
	results := make([][]*model.RawRecord, len(s.adapters))
	var (
		mu     sync.Mutex
		failed []string
		g      errgroup.Group
	)
	for i, a := range s.adapters {
		g.Go(func() error {
			recs, err := a.FetchRecords(ctx, query)
			if err != nil {
				s.logger.WithError(err).WithField("source", a.GetName()).Warn("数据源抓取失败，本次运行缺少该来源")
				s.metrics.AdapterFailed(a.GetName())
				mu.Lock()
				failed = append(failed, a.GetName())
				mu.Unlock()
				return nil
			}
			s.metrics.RecordsFetched(a.GetName(), len(recs))
			results[i] = recs
			return nil
		})
	}
	_ = g.Wait()

	var records []*model.RawRecord
	for _, recs := range results {
		records = append(records, recs...)
	}
	sort.Strings(failed)
	return records, failed
}

// fail 记录失败的运行；运行记录用脱离取消的 context 落库
func (s *SyncService) fail(ctx context.Context, summary *RunSummary, log *logrus.Entry, err error) (*RunSummary, error) {
	summary.Status = RunFailed
	summary.Error = err.Error()
	summary.FinishedAt = s.now().UTC()
	log.WithError(err).Error("运行失败")

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if serr := s.runs.SaveRun(saveCtx, s.runRow(summary, pipeline.ReportSummary{}, pipeline.DedupStats{})); serr != nil {
		log.WithError(serr).Warn("保存失败运行记录失败")
	}
	s.metrics.RunFinished(RunFailed, summary.FinishedAt.Sub(summary.StartedAt))
	return summary, err
}

func (s *SyncService) runRow(summary *RunSummary, report pipeline.ReportSummary, stats pipeline.DedupStats) *model.PipelineRun {
	failed, _ := json.Marshal(nonNil(summary.FailedSources))
	reportJSON, _ := json.Marshal(struct {
		pipeline.ReportSummary
		Dedup pipeline.DedupStats `json:"dedup"`
	}{report, stats})

	run := &model.PipelineRun{
		RunUUID:      summary.RunUUID,
		City:         summary.Query.City,
		Country:      summary.Query.Country,
		Keyword:      summary.Query.Keyword,
		Status:       summary.Status,
		RawRecords:   summary.RawRecords,
		Rejected:     summary.Rejected,
		Merged:       summary.Merged,
		Finalized:    summary.Finalized,
		FailedSource: datatypes.JSON(failed),
		Report:       datatypes.JSON(reportJSON),
		StartedAt:    summary.StartedAt,
		FinishedAt:   summary.FinishedAt,
	}
	if summary.Error != "" {
		msg := summary.Error
		run.Error = &msg
	}
	return run
}

// RunCities 遍历城市列表（城市 × 关键词）。单个查询失败继续后续查询，最后汇总错误
func (s *SyncService) RunCities(ctx context.Context) ([]*RunSummary, error) {
	var (
		summaries []*RunSummary
		errs      []error
	)
	for _, city := range s.opts.Cities {
		for _, query := range s.queriesFor(city) {
			if err := ctx.Err(); err != nil {
				return summaries, errors.Join(append(errs, err)...)
			}
			summary, err := s.RunQuery(ctx, query)
			if summary != nil {
				summaries = append(summaries, summary)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s/%s: %w", query.City, query.Keyword, err))
			}
		}
	}
	return summaries, errors.Join(errs...)
}

func (s *SyncService) queriesFor(city config.City) []model.QueryContext {
	var window model.DateWindow
	if s.opts.Window != nil {
		window = s.opts.Window(s.now().In(cityLocation(city.Timezone)))
	}
	base := model.QueryContext{
		City:        city.Name,
		Country:     city.Country,
		CountryCode: city.CountryCode,
		Timezone:    city.Timezone,
		Language:    city.Language,
		Window:      window,
	}
	if len(city.Keywords) == 0 {
		return []model.QueryContext{base}
	}
	queries := make([]model.QueryContext, 0, len(city.Keywords))
	for _, kw := range city.Keywords {
		q := base
		q.Keyword = kw
		queries = append(queries, q)
	}
	return queries
}

// cityLocation 城市时区；未配置或非法时用 UTC
func cityLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UpcomingWindow 从 now 所在时区的今天起共 days 天；DateWindow 为闭区间，To 即最后一天
func UpcomingWindow(days int) func(now time.Time) model.DateWindow {
	return func(now time.Time) model.DateWindow {
		if days <= 0 {
			return model.DateWindow{}
		}
		from := model.DateOf(now)
		return model.DateWindow{From: from, To: from.AddDays(days - 1)}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
