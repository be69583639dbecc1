package pipeline

import (
	"sort"
	"sync"

	"DanceSync/internal/model"
)

// RunReport 单次运行的拒绝汇总，可被多个 worker 并发写入
type RunReport struct {
	mu         sync.Mutex
	rejections []*model.Rejection
	byReason   map[model.ReasonCode]int
	bySource   map[model.SourceID]int
	accepted   int
}

func NewRunReport() *RunReport {
	return &RunReport{
		byReason: make(map[model.ReasonCode]int),
		bySource: make(map[model.SourceID]int),
	}
}

func (r *RunReport) Reject(rej *model.Rejection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejections = append(r.rejections, rej)
	r.byReason[rej.Reason]++
	r.bySource[rej.SourceID]++
}

func (r *RunReport) Accept() {
	r.mu.Lock()
	r.accepted++
	r.mu.Unlock()
}

// ReportSummary 报告快照（可序列化落库）
type ReportSummary struct {
	Accepted int                      `json:"accepted"`
	Rejected int                      `json:"rejected"`
	ByReason map[model.ReasonCode]int `json:"by_reason"`
	BySource map[model.SourceID]int   `json:"rejected_by_source"`
}

func (r *RunReport) Summary() ReportSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := ReportSummary{
		Accepted: r.accepted,
		Rejected: len(r.rejections),
		ByReason: make(map[model.ReasonCode]int, len(r.byReason)),
		BySource: make(map[model.SourceID]int, len(r.bySource)),
	}
	for k, v := range r.byReason {
		s.ByReason[k] = v
	}
	for k, v := range r.bySource {
		s.BySource[k] = v
	}
	return s
}

// Rejections 以确定性顺序返回拒绝明细
func (r *RunReport) Rejections() []*model.Rejection {
	r.mu.Lock()
	out := append([]*model.Rejection(nil), r.rejections...)
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.SourceRef != b.SourceRef {
			return a.SourceRef < b.SourceRef
		}
		return a.Reason < b.Reason
	})
	return out
}

// Count 某原因码的拒绝数
func (r *RunReport) Count(reason model.ReasonCode) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byReason[reason]
}
