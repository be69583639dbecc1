package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"DanceSync/internal/model"
)

const DefaultFuzzyThreshold = 0.85

// Config 管道参数
type Config struct {
	Workers           int     // 映射+规范化并发度，<=0 时取 CPU 数
	Shards            int     // 去重分片数，<=0 时为 1
	FuzzyThreshold    float64 // 标题相似度阈值，<=0 时取 DefaultFuzzyThreshold
	DefaultTimezone   string
	RequireDanceStyle bool
	Similarity        SimilarityFunc // nil 时使用 LevenshteinSimilarity
}

// Pipeline 原始记录 -> 去重后的规范事件。本身不做任何网络/磁盘 I/O
type Pipeline struct {
	cfg        Config
	mapper     *Mapper
	normalizer *Normalizer
	resolver   *Resolver
	logger     *logrus.Logger
}

// Result 一次运行的结果
type Result struct {
	Events []*model.CanonicalEvent // 已定稿，按 (日期, 身份键) 排序
	Report *RunReport
	Stats  DedupStats
}

func New(cfg Config, logger *logrus.Logger) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Shards <= 0 {
		cfg.Shards = 1
	}
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if cfg.Similarity == nil {
		cfg.Similarity = LevenshteinSimilarity
	}
	return &Pipeline{
		cfg:    cfg,
		mapper: NewMapper(),
		normalizer: NewNormalizer(NormalizerConfig{
			DefaultTimezone:   cfg.DefaultTimezone,
			RequireDanceStyle: cfg.RequireDanceStyle,
		}),
		resolver: NewResolver(),
		logger:   logger,
	}
}

// Run 并发映射、规范化全部记录，按日期分片去重，全部去重完成后才定稿。
// 单条记录的问题记入报告；不变量错误使整次运行失败
func (p *Pipeline) Run(ctx context.Context, records []*model.RawRecord) (*Result, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	report := NewRunReport()
	dedup := NewShardedDeduplicator(p.cfg.Shards, MatchConfig{
		Similarity: p.cfg.Similarity,
		Threshold:  p.cfg.FuzzyThreshold,
	}, p.resolver, cancel)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, rec := range records {
		if gctx.Err() != nil {
			break // 停止投喂即取消
		}
		g.Go(func() error {
			ev, rej := p.process(rec)
			if rej != nil {
				report.Reject(rej)
				p.logger.WithFields(logrus.Fields{
					"stage":  rej.Stage,
					"reason": rej.Reason,
					"source": rej.SourceID,
					"ref":    rej.SourceRef,
				}).Debug(rej.Detail)
				return nil
			}
			report.Accept()
			return dedup.Submit(gctx, ev)
		})
	}
	werr := g.Wait()

	events, stats, derr := dedup.Close()
	if derr != nil {
		return nil, derr
	}
	if werr != nil {
		return nil, werr
	}
	if err := ctx.Err(); err != nil {
		return nil, context.Cause(ctx)
	}

	for _, ev := range events {
		if !ev.HasStart() || len(ev.Sources) == 0 {
			return nil, fmt.Errorf("%w: finalized event %q without start or sources", ErrInvariantViolation, ev.Title)
		}
		ev.Key = NaturalKeyOf(ev)
	}
	return &Result{Events: events, Report: report, Stats: stats}, nil
}

func (p *Pipeline) process(rec *model.RawRecord) (*model.CanonicalEvent, *model.Rejection) {
	cand, rej := p.mapper.Map(rec)
	if rej != nil {
		return nil, rej
	}
	return p.normalizer.Normalize(cand)
}

// Batches 按 size 切分定稿事件，供 Sink 分批写入
func Batches(events []*model.CanonicalEvent, size int) [][]*model.CanonicalEvent {
	if size <= 0 || size >= len(events) {
		if len(events) == 0 {
			return nil
		}
		return [][]*model.CanonicalEvent{events}
	}
	out := make([][]*model.CanonicalEvent, 0, (len(events)+size-1)/size)
	for start := 0; start < len(events); start += size {
		end := min(start+size, len(events))
		out = append(out, events[start:end])
	}
	return out
}
