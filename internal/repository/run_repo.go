package repository

import (
	"context"
	"fmt"

	"DanceSync/internal/interfaces"
	"DanceSync/internal/model"

	"gorm.io/gorm"
)

const rejectionBatchSize = 500

// RunRepository 运行记录与拒绝明细仓储
type RunRepository interface {
	interfaces.RunRecorder
	GetRun(ctx context.Context, runUUID string) (*model.PipelineRun, error)
	ListRejections(ctx context.Context, runUUID string, limit int) ([]*model.PipelineRejection, error)
}

type runRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) SaveRun(ctx context.Context, run *model.PipelineRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("保存运行记录失败: %w", err)
	}
	return nil
}

func (r *runRepository) SaveRejections(ctx context.Context, runUUID string, rejections []*model.Rejection) error {
	if len(rejections) == 0 {
		return nil
	}
	rows := ToRejectionRows(runUUID, rejections)
	if err := r.db.WithContext(ctx).CreateInBatches(rows, rejectionBatchSize).Error; err != nil {
		return fmt.Errorf("保存拒绝明细失败: %w", err)
	}
	return nil
}

// ToRejectionRows 拒绝结果 -> pipeline_rejections 行
func ToRejectionRows(runUUID string, rejections []*model.Rejection) []*model.PipelineRejection {
	rows := make([]*model.PipelineRejection, 0, len(rejections))
	for _, rej := range rejections {
		rows = append(rows, &model.PipelineRejection{
			RunUUID:   runUUID,
			Stage:     string(rej.Stage),
			Reason:    string(rej.Reason),
			SourceID:  string(rej.SourceID),
			SourceRef: truncate(rej.SourceRef, 512),
			Detail:    rej.Detail,
		})
	}
	return rows
}

func (r *runRepository) GetRun(ctx context.Context, runUUID string) (*model.PipelineRun, error) {
	var run model.PipelineRun
	if err := r.db.WithContext(ctx).Where("run_uuid = ?", runUUID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *runRepository) ListRejections(ctx context.Context, runUUID string, limit int) ([]*model.PipelineRejection, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var rows []*model.PipelineRejection
	if err := r.db.WithContext(ctx).
		Where("run_uuid = ?", runUUID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// truncate 按字符截断，避免超出列宽
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
