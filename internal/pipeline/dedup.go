package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"

	"DanceSync/internal/model"
)

// ErrInvariantViolation 内部不变量被破坏（编程错误），整次运行必须失败，不能吞掉
var ErrInvariantViolation = errors.New("pipeline invariant violation")

// Decision 去重决策
type Decision string

const (
	DecisionNew        Decision = "NEW"
	DecisionMergeExact Decision = "MERGE_EXACT"
	DecisionMergeFuzzy Decision = "MERGE_FUZZY"
)

// MatchConfig 模糊匹配参数
type MatchConfig struct {
	Similarity SimilarityFunc
	Threshold  float64
}

// DedupStats 去重统计
type DedupStats struct {
	Received    int `json:"received"`
	New         int `json:"new"`
	MergedExact int `json:"merged_exact"`
	MergedFuzzy int `json:"merged_fuzzy"`
	Cascaded    int `json:"cascaded"` // 合并后重算的键与另一事件冲突而触发的级联合并
}

func (s *DedupStats) add(o DedupStats) {
	s.Received += o.Received
	s.New += o.New
	s.MergedExact += o.MergedExact
	s.MergedFuzzy += o.MergedFuzzy
	s.Cascaded += o.Cascaded
}

// WorkingSet 一次运行中（某个分片内）的事件集合。非并发安全，由单一 owner 持有
type WorkingSet struct {
	match    MatchConfig
	resolver *Resolver
	byKey    map[string]*model.CanonicalEvent
	byDay    map[model.Date][]*model.CanonicalEvent
	stats    DedupStats
}

func NewWorkingSet(match MatchConfig, resolver *Resolver) *WorkingSet {
	if match.Similarity == nil {
		match.Similarity = LevenshteinSimilarity
	}
	return &WorkingSet{
		match:    match,
		resolver: resolver,
		byKey:    make(map[string]*model.CanonicalEvent),
		byDay:    make(map[model.Date][]*model.CanonicalEvent),
	}
}

// Add 把一条规范事件并入集合，返回去重决策
func (w *WorkingSet) Add(ev *model.CanonicalEvent) (Decision, error) {
	if err := validateEvent(ev); err != nil {
		return "", err
	}
	w.stats.Received++
	ev.IdentityKey = IdentityKey(ev)

	if existing, ok := w.byKey[ev.IdentityKey]; ok {
		w.stats.MergedExact++
		return DecisionMergeExact, w.merge(existing, ev)
	}
	if target := w.bestFuzzy(ev); target != nil {
		w.stats.MergedFuzzy++
		return DecisionMergeFuzzy, w.merge(target, ev)
	}
	w.insert(ev)
	w.stats.New++
	return DecisionNew, nil
}

// Len 集合中的事件数
func (w *WorkingSet) Len() int { return len(w.byKey) }

func (w *WorkingSet) Stats() DedupStats { return w.stats }

// Events 按 (日期, 身份键) 排序返回全部事件
func (w *WorkingSet) Events() []*model.CanonicalEvent {
	out := make([]*model.CanonicalEvent, 0, len(w.byKey))
	for _, ev := range w.byKey {
		out = append(out, ev)
	}
	sortEvents(out)
	return out
}

func (w *WorkingSet) insert(ev *model.CanonicalEvent) {
	w.byKey[ev.IdentityKey] = ev
	day := ev.EventDay()
	w.byDay[day] = append(w.byDay[day], ev)
}

func (w *WorkingSet) remove(ev *model.CanonicalEvent) {
	if w.byKey[ev.IdentityKey] == ev {
		delete(w.byKey, ev.IdentityKey)
	}
	day := ev.EventDay()
	bucket := w.byDay[day]
	for i, c := range bucket {
		if c == ev {
			w.byDay[day] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(w.byDay[day]) == 0 {
		delete(w.byDay, day)
	}
}

func (w *WorkingSet) merge(dst, src *model.CanonicalEvent) error {
	day := dst.EventDay()
	w.resolver.Merge(dst, src)
	if got := dst.EventDay(); got != day {
		return fmt.Errorf("%w: merge moved %q from %s to %s", ErrInvariantViolation, dst.Title, day, got)
	}
	return w.rekey(dst)
}

// rekey 合并可能改变标题/场馆从而改变键；新键若与另一事件冲突，二者是同一事件，继续合并
func (w *WorkingSet) rekey(ev *model.CanonicalEvent) error {
	newKey := IdentityKey(ev)
	if old := ev.IdentityKey; old != newKey && w.byKey[old] == ev {
		delete(w.byKey, old)
	}
	ev.IdentityKey = newKey
	if other, ok := w.byKey[newKey]; ok && other != ev {
		w.remove(other)
		w.stats.Cascaded++
		return w.merge(ev, other)
	}
	w.byKey[newKey] = ev
	return nil
}

// bestFuzzy 同一日期桶内、场馆兼容、标题相似度达到阈值的最佳候选；
// 相似度相同时取来源更多者，再按身份键字典序
func (w *WorkingSet) bestFuzzy(ev *model.CanonicalEvent) *model.CanonicalEvent {
	titleKey := TitleKey(ev.Title, ev.VenueName)
	var best *model.CanonicalEvent
	bestSim := 0.0
	for _, c := range w.byDay[ev.EventDay()] {
		if !venuesCompatible(c, ev) {
			continue
		}
		sim := w.match.Similarity(TitleKey(c.Title, c.VenueName), titleKey)
		if sim < w.match.Threshold {
			continue
		}
		if best == nil || sim > bestSim ||
			(sim == bestSim && (len(c.Sources) > len(best.Sources) ||
				(len(c.Sources) == len(best.Sources) && c.IdentityKey < best.IdentityKey))) {
			best, bestSim = c, sim
		}
	}
	return best
}

// venuesCompatible 场馆键相同，或至少一方未知
func venuesCompatible(a, b *model.CanonicalEvent) bool {
	if a.VenueName == nil || b.VenueName == nil {
		return true
	}
	return VenueKey(*a.VenueName) == VenueKey(*b.VenueName)
}

func validateEvent(ev *model.CanonicalEvent) error {
	switch {
	case ev == nil:
		return fmt.Errorf("%w: nil event", ErrInvariantViolation)
	case strings.TrimSpace(ev.Title) == "" || keyText(ev.Title) == "":
		return fmt.Errorf("%w: event with empty title reached dedup", ErrInvariantViolation)
	case !ev.HasStart():
		return fmt.Errorf("%w: event %q has no start", ErrInvariantViolation, ev.Title)
	case len(ev.Sources) == 0:
		return fmt.Errorf("%w: event %q has no sources", ErrInvariantViolation, ev.Title)
	}
	return nil
}

func sortEvents(events []*model.CanonicalEvent) {
	sort.Slice(events, func(i, j int) bool {
		di, dj := events[i].EventDay(), events[j].EventDay()
		if di != dj {
			return di.Before(dj)
		}
		return events[i].IdentityKey < events[j].IdentityKey
	})
}

// ShardedDeduplicator 按日期桶哈希分片，每个分片由独立 goroutine 持有一个 WorkingSet。
// 不同日期的事件永不合并，所以分片之间无需协调
type ShardedDeduplicator struct {
	shards  []*dedupShard
	onFatal func(error)
	wg      sync.WaitGroup
}

type dedupShard struct {
	in  chan *model.CanonicalEvent
	set *WorkingSet
	err error
}

// NewShardedDeduplicator 启动 n 个分片；onFatal 在分片遇到不变量错误时调用（通常用于取消整次运行）
func NewShardedDeduplicator(n int, match MatchConfig, resolver *Resolver, onFatal func(error)) *ShardedDeduplicator {
	if n < 1 {
		n = 1
	}
	d := &ShardedDeduplicator{shards: make([]*dedupShard, n), onFatal: onFatal}
	for i := range d.shards {
		sh := &dedupShard{
			in:  make(chan *model.CanonicalEvent, 64),
			set: NewWorkingSet(match, resolver),
		}
		d.shards[i] = sh
		d.wg.Add(1)
		go d.run(sh)
	}
	return d
}

func (d *ShardedDeduplicator) run(sh *dedupShard) {
	defer d.wg.Done()
	for ev := range sh.in {
		if sh.err != nil {
			continue // 已失败，只负责排空通道
		}
		if _, err := sh.set.Add(ev); err != nil {
			sh.err = err
			if d.onFatal != nil {
				d.onFatal(err)
			}
		}
	}
}

// Submit 把事件路由到其日期所属分片
func (d *ShardedDeduplicator) Submit(ctx context.Context, ev *model.CanonicalEvent) error {
	if ev == nil || !ev.HasStart() {
		return validateEvent(ev)
	}
	sh := d.shards[shardFor(ev.EventDay(), len(d.shards))]
	select {
	case sh.in <- ev:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// Close 关闭输入并等待所有分片结束，返回排序后的事件与合计统计。
// 任一分片出错则返回该错误
func (d *ShardedDeduplicator) Close() ([]*model.CanonicalEvent, DedupStats, error) {
	for _, sh := range d.shards {
		close(sh.in)
	}
	d.wg.Wait()

	var stats DedupStats
	var events []*model.CanonicalEvent
	for _, sh := range d.shards {
		if sh.err != nil {
			return nil, stats, sh.err
		}
		stats.add(sh.set.Stats())
		events = append(events, sh.set.Events()...)
	}
	sortEvents(events)
	return events, stats, nil
}

func shardFor(day model.Date, n int) int {
	h := fnv.New32a()
	h.Write([]byte(day.String()))
	return int(h.Sum32() % uint32(n))
}
