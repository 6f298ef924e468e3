package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/antoninfaure/occupancy-scraper/pkg/errors"
)

// Writer 对账结果写入端（由 repository 实现）
type Writer[E any] interface {
	// BatchCreate 批量插入，自然键冲突的行被忽略，返回实际插入行数
	// 分批执行且不在同一事务内；出错时返回出错前已写入的行数
	BatchCreate(ctx context.Context, rows []E) (int64, error)
	// SetAvailable 按标识列表批量设置 available
	SetAvailable(ctx context.Context, ids []string, available bool) error
}

// Result 一次对账的写入统计
type Result struct {
	Created     int `json:"created"`
	Reactivated int `json:"reactivated"`
	SoftDeleted int `json:"soft_deleted"`
	Unchanged   int `json:"unchanged"`
	Protected   int `json:"protected"`
	// Skipped 计划新建但本次未写入的行（已被并发同步插入，或所在批次因唯一约束冲突失败）
	Skipped int `json:"skipped"`
}

// Writes 写操作影响的行数
func (r Result) Writes() int {
	return r.Created + r.Reactivated + r.SoftDeleted
}

// Add 累加另一次对账的统计
func (r *Result) Add(o Result) {
	r.Created += o.Created
	r.Reactivated += o.Reactivated
	r.SoftDeleted += o.SoftDeleted
	r.Unchanged += o.Unchanged
	r.Protected += o.Protected
	r.Skipped += o.Skipped
}

// Apply 依次执行：批量插入 Create、重新启用 Reactivate、软删除 SoftDelete
// 空计划不发出任何写操作。唯一约束冲突只记录日志，本次运行继续；
// 其余存储错误直接返回。
func Apply[K comparable, E any](ctx context.Context, plan Plan[K, E], w Writer[E], idOf func(E) string, log *zap.Logger) (Result, error) {
	res := Result{Unchanged: len(plan.Unchanged), Protected: len(plan.Protected)}

	if len(plan.Create) > 0 {
		n, err := w.BatchCreate(ctx, plan.Create)
		switch {
		case err == nil:
			res.Created = int(n)
			res.Skipped = len(plan.Create) - int(n)
			if res.Skipped > 0 {
				log.Info("部分记录已存在，跳过插入", zap.Int("skipped", res.Skipped))
			}
		case apperrors.IsUniqueViolation(err):
			// 冲突之前的批次已提交
			res.Created = int(n)
			res.Skipped = len(plan.Create) - int(n)
			log.Warn("批量插入唯一约束冲突，等待下次同步自愈",
				zap.Int("created", res.Created), zap.Int("skipped", res.Skipped), zap.Error(err))
		default:
			return res, fmt.Errorf("批量插入失败: %w", err)
		}
	}

	if len(plan.Reactivate) > 0 {
		if err := w.SetAvailable(ctx, ids(plan.Reactivate, idOf), true); err != nil {
			return res, fmt.Errorf("重新启用失败: %w", err)
		}
		res.Reactivated = len(plan.Reactivate)
	}

	if len(plan.SoftDelete) > 0 {
		if err := w.SetAvailable(ctx, ids(plan.SoftDelete, idOf), false); err != nil {
			return res, fmt.Errorf("软删除失败: %w", err)
		}
		res.SoftDeleted = len(plan.SoftDelete)
	}

	return res, nil
}

func ids[E any](rows []E, idOf func(E) string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, idOf(r))
	}
	return out
}
