package notices

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

type Notice struct {
	Level Level
	Text  string
	At    time.Time
}

const defaultBuffer = 16

// Center is the single toast queue of the app. Notices published while a
// blocking modal holds the gate are parked and flushed in publish order once
// the last gate is released.
type Center struct {
	mu     sync.Mutex
	out    chan Notice
	parked []Notice
	gates  int
	now    func() time.Time
	log    *zap.Logger
}

func NewCenter(buffer int, log *zap.Logger) *Center {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Center{
		out: make(chan Notice, buffer),
		now: time.Now,
		log: log,
	}
}

// C is the consumer side for the UI shell.
func (c *Center) C() <-chan Notice {
	return c.out
}

// Publish delivers immediately regardless of any open modal.
func (c *Center) Publish(level Level, text string) {
	c.mu.Lock()
	notice := Notice{Level: level, Text: text, At: c.now()}
	c.mu.Unlock()
	c.emit(notice)
}

// PublishDeferred delivers now unless a blocking modal is shown, in which
// case the notice waits for the gate to clear.
func (c *Center) PublishDeferred(level Level, text string) {
	c.mu.Lock()
	notice := Notice{Level: level, Text: text, At: c.now()}
	if c.gates > 0 {
		c.parked = append(c.parked, notice)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.emit(notice)
}

// AcquireGate registers a blocking modal. The returned release func is
// idempotent; when the last open gate releases, parked notices flush in
// order.
func (c *Center) AcquireGate() func() {
	c.mu.Lock()
	c.gates++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.gates--
			var flush []Notice
			if c.gates == 0 {
				flush = c.parked
				c.parked = nil
			}
			c.mu.Unlock()

			for _, notice := range flush {
				c.emit(notice)
			}
		})
	}
}

func (c *Center) emit(notice Notice) {
	select {
	case c.out <- notice:
	default:
		c.log.Warn("notice buffer full, dropping",
			zap.String("level", string(notice.Level)),
			zap.String("text", notice.Text),
		)
	}
}
