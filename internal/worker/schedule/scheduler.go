// Package schedule は定期ジョブのバックグラウンド実行を提供する。
// 今日のビーフのローテーションとカウンタ整合性検査をティッカーで駆動する。
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task は定期実行するジョブ。
type Task struct {
	Name     string
	Interval time.Duration // 成功後、次に実行するまでの間隔
	Run      func(ctx context.Context) error
}

// taskState はタスクごとの実行状態。
type taskState struct {
	nextRunAt         time.Time
	consecutiveErrors int
}

// Scheduler は登録されたタスクをティッカーで実行する。
// 期限の来たタスクをsemaphoreパターンで最大並列数を制御しながら実行し、
// 再試行可能なエラーの場合は指数バックオフで次回実行を早める。
type Scheduler struct {
	tasks          []Task
	logger         *slog.Logger
	maxConcurrency int
	now            func() time.Time

	mu    sync.Mutex
	state map[string]*taskState
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値2を使用する。
func NewScheduler(tasks []Task, logger *slog.Logger, maxConcurrency int) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	state := make(map[string]*taskState, len(tasks))
	for _, t := range tasks {
		state[t.Name] = &taskState{}
	}
	return &Scheduler{
		tasks:          tasks,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		now:            time.Now,
		state:          state,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	s.logger.Info("ジョブスケジューラを開始しました",
		slog.Duration("tick", tick),
		slog.Int("task_count", len(s.tasks)),
	)

	// 起動直後に1回実行
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ジョブスケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は期限の来たタスクを並列に実行し、実行したタスク数を返す。
func (s *Scheduler) RunOnce(ctx context.Context) int {
	now := s.now()
	due := s.dueTasks(now)
	if len(due) == 0 {
		return 0
	}

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, task := range due {
		wg.Add(1)
		sem <- struct{}{}

		go func(t Task) {
			defer wg.Done()
			defer func() { <-sem }()
			s.runTask(ctx, t)
		}(task)
	}

	wg.Wait()
	return len(due)
}

func (s *Scheduler) dueTasks(now time.Time) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Task
	for _, t := range s.tasks {
		if !now.Before(s.state[t.Name].nextRunAt) {
			due = append(due, t)
		}
	}
	return due
}

func (s *Scheduler) runTask(ctx context.Context, t Task) {
	start := s.now()
	begin := time.Now()
	err := t.Run(ctx)
	duration := time.Since(begin)

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state[t.Name]

	if err == nil {
		st.consecutiveErrors = 0
		st.nextRunAt = start.Add(t.Interval)
		s.logger.Debug("ジョブが完了しました",
			slog.String("task", t.Name),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
		return
	}

	st.consecutiveErrors++
	delay := t.Interval
	if IsRetryable(err) {
		if backoff := CalculateBackoff(st.consecutiveErrors); backoff < delay {
			delay = backoff
		}
	}
	st.nextRunAt = start.Add(delay)

	s.logger.Error("ジョブの実行に失敗しました",
		slog.String("task", t.Name),
		slog.Int("consecutive_errors", st.consecutiveErrors),
		slog.Duration("retry_in", delay),
		slog.String("error", err.Error()),
	)
}

// NextRunAt はタスクの次回実行予定時刻を返す。未登録のタスクはゼロ値を返す。
func (s *Scheduler) NextRunAt(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.state[name]; ok {
		return st.nextRunAt
	}
	return time.Time{}
}
