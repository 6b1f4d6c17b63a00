package timer

import (
	"sync"
	"time"
)

// DefaultInterval — шаг обратного отсчёта в продакшене
const DefaultInterval = time.Second

// Cooldown — отменяемый обратный отсчёт, ограничивающий повторную отправку
// кода. Уменьшается ровно на единицу за интервал, никогда не уходит ниже
// нуля и не тикает после Stop. Start во время работы перезапускает отсчёт
// (успешный resend стартует новые 60 секунд).
//
// Каждый контекст (верификация при регистрации, восстановление пароля)
// владеет собственным экземпляром; таймеры никогда не разделяют состояние.
type Cooldown struct {
	mu        sync.Mutex
	remaining int
	interval  time.Duration
	stop      chan struct{} // nil, когда отсчёт не идёт
	onTick    func(remaining int)
}

// Option настраивает Cooldown
type Option func(*Cooldown)

// WithInterval задает шаг отсчёта (в тестах — миллисекунды)
func WithInterval(interval time.Duration) Option {
	return func(c *Cooldown) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithOnTick задает наблюдателя: вызывается после каждого уменьшения
// со значением remaining (вне блокировки)
func WithOnTick(fn func(remaining int)) Option {
	return func(c *Cooldown) {
		c.onTick = fn
	}
}

// New создает остановленный Cooldown
func New(opts ...Option) *Cooldown {
	c := &Cooldown{interval: DefaultInterval}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start запускает отсчёт с seconds. Уже идущий отсчёт отменяется —
// действует только самый свежий запуск.
func (c *Cooldown) Start(seconds int) {
	if seconds <= 0 {
		c.Stop()
		return
	}

	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
	}
	stop := make(chan struct{})
	c.stop = stop
	c.remaining = seconds
	c.mu.Unlock()

	go c.run(stop)
}

// run тикает до нуля или до отмены
func (c *Cooldown) run(stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.stop != stop {
				// Отсчёт перезапущен или остановлен — этот run устарел
				c.mu.Unlock()
				return
			}
			if c.remaining > 0 {
				c.remaining--
			}
			remaining := c.remaining
			finished := remaining == 0
			if finished {
				c.stop = nil
			}
			onTick := c.onTick
			c.mu.Unlock()

			if onTick != nil {
				onTick(remaining)
			}
			if finished {
				return
			}
		}
	}
}

// Stop отменяет отсчёт и обнуляет remaining. Идемпотентен; безопасен
// для не запускавшегося таймера. После Stop тиков не бывает.
func (c *Cooldown) Stop() {
	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.remaining = 0
	c.mu.Unlock()
}

// Remaining возвращает оставшиеся секунды (0 — resend разрешён)
func (c *Cooldown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Active сообщает, идёт ли отсчёт
func (c *Cooldown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}
