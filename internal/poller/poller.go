// Package poller периодически перечитывает данные для экранов только
// для чтения (сводка админки, обращения в поддержку).
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
)

// DefaultInterval период опроса, если Interval не положителен.
const DefaultInterval = 30 * time.Second

// Poller запускает Fetch сразу и затем раз в Interval. Запросы не ждут
// друг друга; каждый получает порядковый номер, и Apply вызывается только
// для ответа новее последнего применённого. Ответ, пришедший после более
// позднего запроса, отбрасывается.
type Poller[T any] struct {
	Name     string
	Interval time.Duration
	Fetch    func(ctx context.Context) (T, error)
	Apply    func(T)
	Log      *slog.Logger

	mu      sync.Mutex
	issued  uint64
	applied uint64
}

// Run работает до отмены ctx и возвращается после завершения всех
// начатых запросов.
func (p *Poller[T]) Run(ctx context.Context) {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("poller", p.Name))

	interval := p.Interval
	if interval <= 0 {
		log.Warn("non-positive poll interval, using default",
			slog.Duration("interval", p.Interval),
			slog.Duration("default", DefaultInterval),
		)
		interval = DefaultInterval
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	tick := func() {
		p.mu.Lock()
		p.issued++
		seq := p.issued
		p.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			p.fetch(ctx, seq, log)
		}()
	}

	tick()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug("poller stopped")
			return
		case <-ticker.C:
			tick()
		}
	}
}

func (p *Poller[T]) fetch(ctx context.Context, seq uint64, log *slog.Logger) {
	v, err := p.Fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("poll failed", slog.Uint64("seq", seq), sl.Err(err))
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if seq <= p.applied {
		log.Debug("stale poll response discarded",
			slog.Uint64("seq", seq),
			slog.Uint64("applied", p.applied),
		)
		return
	}
	p.applied = seq
	p.Apply(v)
}
