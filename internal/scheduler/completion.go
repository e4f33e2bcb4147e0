package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"moving-team/backend/config"
	"moving-team/backend/internal/notify"
	"moving-team/backend/internal/repository"
)

// 跳过原因
const (
	SkipAlreadyRunning  = "already_running"
	SkipLockedElsewhere = "locked_by_other_instance"
	SkipTooSoon         = "interval_not_elapsed"
)

// Status 批处理状态
type Status struct {
	Running     bool
	LastRunTime time.Time
}

// RunResult 单次触发的结果
type RunResult struct {
	Skipped   bool
	Reason    string
	Batches   int
	Completed int64
}

// CompletionScheduler 将搬家日已过的 APPROVED 申请批量置为 COMPLETED
//
//	Idle ──Trigger/RunManually──▶ Running ──▶ Idle
//
// 同一时刻最多一次执行（进程内 running 标记 + RunLock）；
// 定时触发时距上次成功执行不足 MinInterval 则跳过，手动触发不受此限
type CompletionScheduler struct {
	repo     *repository.Repository
	lock     RunLock
	store    LastRunStore
	notifier notify.Notifier
	cfg      config.SchedulerConfig
	logger   *zap.Logger
	now      func() time.Time

	running atomic.Bool

	mu         sync.Mutex
	lastCached time.Time // store 读取失败时 Status 的回退值
}

// NewCompletionScheduler 创建批处理调度器；lock / store 为 nil 时使用单实例实现
func NewCompletionScheduler(
	repo *repository.Repository,
	lock RunLock,
	store LastRunStore,
	notifier notify.Notifier,
	cfg config.SchedulerConfig,
	logger *zap.Logger,
) *CompletionScheduler {
	if lock == nil {
		lock = LocalLock{}
	}
	if store == nil {
		store = &MemoryStore{}
	}
	return &CompletionScheduler{
		repo:     repo,
		lock:     lock,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Start 启动定时触发，ctx 取消后退出
func (s *CompletionScheduler) Start(ctx context.Context) {
	go func() {
		t := time.NewTicker(s.cfg.CheckInterval)
		defer t.Stop()

		s.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.tick(ctx)
			}
		}
	}()
}

func (s *CompletionScheduler) tick(ctx context.Context) {
	res, err := s.Trigger(ctx)
	if err != nil {
		// 下一个周期重试
		return
	}
	if !res.Skipped {
		s.logger.Info("完成批处理执行结束",
			zap.Int("batches", res.Batches),
			zap.Int64("completed", res.Completed))
	}
}

// Trigger 定时触发：受单飞与最小间隔约束
func (s *CompletionScheduler) Trigger(ctx context.Context) (RunResult, error) {
	return s.run(ctx, true)
}

// RunManually 手动触发：仅受单飞约束
func (s *CompletionScheduler) RunManually(ctx context.Context) (RunResult, error) {
	return s.run(ctx, false)
}

// Status 当前是否在执行及最近一次成功执行时间
func (s *CompletionScheduler) Status(ctx context.Context) Status {
	last, err := s.store.Get(ctx)
	if err != nil {
		s.logger.Warn("读取最近执行时间失败", zap.Error(err))
		s.mu.Lock()
		last = s.lastCached
		s.mu.Unlock()
	}
	return Status{Running: s.running.Load(), LastRunTime: last}
}

func (s *CompletionScheduler) run(ctx context.Context, checkInterval bool) (RunResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return RunResult{Skipped: true, Reason: SkipAlreadyRunning}, nil
	}
	defer s.running.Store(false)

	release, ok, err := s.lock.Acquire(ctx, s.cfg.LockTTL)
	if err != nil {
		s.logger.Error("获取批处理锁失败", zap.Error(err))
		return RunResult{}, err
	}
	if !ok {
		return RunResult{Skipped: true, Reason: SkipLockedElsewhere}, nil
	}
	defer release()

	now := s.now()

	// 间隔在持锁后检查，其他实例刚完成的执行也会被计入
	if checkInterval {
		last, err := s.store.Get(ctx)
		if err != nil {
			s.logger.Error("读取最近执行时间失败", zap.Error(err))
			return RunResult{}, err
		}
		if !last.IsZero() && now.Sub(last) < s.cfg.MinInterval {
			return RunResult{Skipped: true, Reason: SkipTooSoon}, nil
		}
	}

	var res RunResult
	for res.Batches < s.cfg.MaxBatches {
		n, customers, err := s.completeBatch(ctx, now)
		if err != nil {
			s.logger.Error("完成批处理失败，等待下次触发",
				zap.Int("batch", res.Batches+1),
				zap.Int64("completed_so_far", res.Completed),
				zap.Error(err))
			return res, err
		}
		if len(customers) == 0 {
			break
		}
		res.Batches++
		res.Completed += n

		s.notifier.Notify(ctx, notify.Event{
			Kind:       notify.KindMoveCompleted,
			Recipients: customers,
		})
	}

	if err := s.store.Set(ctx, now); err != nil {
		s.logger.Error("记录最近执行时间失败", zap.Error(err))
		return res, err
	}
	s.mu.Lock()
	s.lastCached = now
	s.mu.Unlock()

	return res, nil
}

// completeBatch 单个事务：锁定至多 BatchSize 行并置为 COMPLETED
func (s *CompletionScheduler) completeBatch(ctx context.Context, before time.Time) (int64, []string, error) {
	var (
		completed int64
		customers []string
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		rows, err := tx.EstimateRequest.LockOverdueApproved(ctx, before, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]string, 0, len(rows))
		seen := make(map[string]bool, len(rows))
		for _, r := range rows {
			ids = append(ids, r.EstimateRequestID)
			if !seen[r.CustomerID] {
				seen[r.CustomerID] = true
				customers = append(customers, r.CustomerID)
			}
		}

		completed, err = tx.EstimateRequest.CompleteByIDs(ctx, ids)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return completed, customers, nil
}
