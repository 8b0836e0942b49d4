package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"cronhelper/internal/shared"
)

// JobFunc - тело задачи драйвера.
type JobFunc func(ctx context.Context) error

// JobID - идентификатор задачи в cron.
type JobID = cron.EntryID

// OverlapPolicy определяет, что делать, если предыдущий запуск ещё идёт.
type OverlapPolicy int

const (
	// AllowOverlap разрешает параллельные запуски (по умолчанию).
	AllowOverlap OverlapPolicy = iota
	// SkipIfRunning пропускает запуск, пока предыдущий не завершился.
	SkipIfRunning
	// DelayIfRunning ждёт завершения предыдущего запуска.
	DelayIfRunning
)

func (p OverlapPolicy) String() string {
	switch p {
	case SkipIfRunning:
		return "skip"
	case DelayIfRunning:
		return "delay"
	default:
		return "allow"
	}
}

// JobOptions содержит опции задачи.
type JobOptions struct {
	// Name - имя задачи для логов и хуков.
	Name string
	// Timeout - ограничение на один запуск; 0 - без ограничения.
	Timeout time.Duration
	// OverlapPolicy - политика перекрытия запусков.
	OverlapPolicy OverlapPolicy
}

// JobHooks - необязательные хуки наблюдаемости.
type JobHooks struct {
	OnJobStart  func(name string)
	OnJobFinish func(name string, duration time.Duration, err error)
}

// Config содержит конфигурацию драйвера.
type Config struct {
	Logger   *slog.Logger
	JobHooks JobHooks
	// Location - часовой пояс cron-выражений; по умолчанию UTC.
	Location *time.Location
}

// Scheduler запускает задачи по cron-выражениям и фиксированным интервалам
// поверх robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	clog    cron.Logger
	hooks   JobHooks
	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool

	mu    sync.Mutex
	names map[JobID]string

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   chan struct{}
}

// New создает драйвер с background контекстом.
func New(cfg Config) *Scheduler {
	return NewWithContext(context.Background(), cfg)
}

// NewWithContext создает драйвер; отмена parent останавливает его.
func NewWithContext(parent context.Context, cfg Config) *Scheduler {
	ctx, cancel := context.WithCancel(parent)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	clog := cronLogger{logger: logger.With("component", "cron")}

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog)),
		),
		logger:  logger.With("component", "scheduler"),
		clog:    clog,
		hooks:   cfg.JobHooks,
		ctx:     ctx,
		cancel:  cancel,
		names:   make(map[JobID]string),
		stopped: make(chan struct{}),
	}
}

// AddCronJob добавляет задачу по cron-выражению с секундами
// ("0 */5 * * * *", "@hourly", "@every 30s").
func (s *Scheduler) AddCronJob(spec string, job JobFunc, opts JobOptions) (JobID, error) {
	id, err := s.cron.AddJob(spec, s.wrap(job, opts))
	if err != nil {
		return 0, shared.MarkKind(fmt.Errorf("cron spec %q: %w", spec, err), shared.KindValidation)
	}
	s.remember(id, opts.Name)
	s.logger.Info("cron job added", "spec", spec, "name", opts.Name, "overlap", opts.OverlapPolicy, "id", id)
	return id, nil
}

// AddEvery добавляет задачу с постоянной задержкой между запусками.
// Интервал округляется вниз до секунды, минимум одна секунда.
func (s *Scheduler) AddEvery(interval time.Duration, job JobFunc, opts JobOptions) (JobID, error) {
	if interval <= 0 {
		return 0, shared.Validationf("interval must be positive, got %s", interval)
	}
	schedule := cron.Every(interval)
	id := s.cron.Schedule(schedule, s.wrap(job, opts))
	s.remember(id, opts.Name)
	s.logger.Info("interval job added", "every", schedule.Delay, "name", opts.Name, "overlap", opts.OverlapPolicy, "id", id)
	return id, nil
}

// Remove удаляет задачу. Текущий запуск не прерывается.
func (s *Scheduler) Remove(id JobID) {
	s.cron.Remove(id)
	s.mu.Lock()
	name := s.names[id]
	delete(s.names, id)
	s.mu.Unlock()
	s.logger.Info("job removed", "id", id, "name", name)
}

// Next возвращает время следующего запуска задачи; false если задачи нет
// или драйвер ещё не запущен.
func (s *Scheduler) Next(id JobID) (time.Time, bool) {
	e := s.cron.Entry(id)
	if !e.Valid() || e.Next.IsZero() {
		return time.Time{}, false
	}
	return e.Next, true
}

// Start запускает драйвер. Повторные вызовы ничего не делают.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.logger.Info("starting scheduler")
		s.running.Store(true)
		s.cron.Start()

		go func() {
			<-s.ctx.Done()
			s.stopOnce.Do(s.stop)
		}()
	})
}

// Stop останавливает драйвер и ждёт завершения текущих запусков.
func (s *Scheduler) Stop() {
	_ = s.StopContext(context.Background())
}

// StopContext останавливает драйвер, ожидая текущие запуски не дольше ctx.
// Контекст задач отменяется сразу, поэтому задачи, уважающие ctx,
// завершаются быстро.
func (s *Scheduler) StopContext(ctx context.Context) error {
	s.cancel()
	s.stopOnce.Do(s.stop)

	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop deadline exceeded")
		return ctx.Err()
	}
}

// IsRunning сообщает, запущен ли драйвер и не остановлен ли он.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// stop останавливает cron и закрывает s.stopped после завершения запусков.
func (s *Scheduler) stop() {
	wasRunning := s.running.Swap(false)
	done := s.cron.Stop()
	go func() {
		<-done.Done()
		if wasRunning {
			s.logger.Info("scheduler stopped")
		}
		close(s.stopped)
	}()
}

func (s *Scheduler) remember(id JobID, name string) {
	s.mu.Lock()
	s.names[id] = name
	s.mu.Unlock()
}

// wrap строит cron.Job: цепочка перекрытий, затем запуск с таймаутом,
// хуками и перехватом паники.
func (s *Scheduler) wrap(job JobFunc, opts JobOptions) cron.Job {
	name := opts.Name
	if name == "" {
		name = "unnamed"
	}

	var chain cron.Chain
	switch opts.OverlapPolicy {
	case SkipIfRunning:
		chain = cron.NewChain(cron.SkipIfStillRunning(s.clog))
	case DelayIfRunning:
		chain = cron.NewChain(cron.DelayIfStillRunning(s.clog))
	default:
		chain = cron.NewChain()
	}

	return chain.Then(cron.FuncJob(func() {
		s.run(name, job, opts.Timeout)
	}))
}

func (s *Scheduler) run(name string, job JobFunc, timeout time.Duration) {
	if s.ctx.Err() != nil {
		return
	}
	if s.hooks.OnJobStart != nil {
		s.hooks.OnJobStart(name)
	}

	ctx := s.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := safeRun(ctx, job)
	duration := time.Since(start)

	if s.hooks.OnJobFinish != nil {
		s.hooks.OnJobFinish(name, duration, err)
	}
	if err != nil {
		s.logger.Error("job failed", "name", name, "error", err, "duration", duration)
		return
	}
	s.logger.Debug("job completed", "name", name, "duration", duration)
}

func safeRun(ctx context.Context, job JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: job panicked: %v", shared.ErrInternal, r)
		}
	}()
	return job(ctx)
}

// cronLogger передаёт логи robfig/cron в slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	// cron пишет каждое пробуждение в Info, это шум уровня Debug
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
