package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Subscription is the cancellable handle returned by every On* registration.
// Close is idempotent and must be called on teardown.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

// Dispatcher fans decoded frames out to registered subscribers. Events are
// applied in arrival order, no batching.
type Dispatcher struct {
	mu       sync.Mutex
	nextID   int
	likedYou map[int]func(LikedYouEvent)
	match    map[int]func(MatchEvent)
	message  map[int]func(MessageEvent)
	log      *zap.Logger
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		likedYou: make(map[int]func(LikedYouEvent)),
		match:    make(map[int]func(MatchEvent)),
		message:  make(map[int]func(MessageEvent)),
		log:      log,
	}
}

func (d *Dispatcher) OnLikedYou(fn func(LikedYouEvent)) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.likedYou[id] = fn
	return &Subscription{cancel: func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.likedYou, id)
	}}
}

func (d *Dispatcher) OnMatch(fn func(MatchEvent)) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.match[id] = fn
	return &Subscription{cancel: func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.match, id)
	}}
}

func (d *Dispatcher) OnMessage(fn func(MessageEvent)) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.message[id] = fn
	return &Subscription{cancel: func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.message, id)
	}}
}

// Dispatch decodes one frame and delivers it. Malformed frames are logged
// and skipped; they never tear the connection down.
func (d *Dispatcher) Dispatch(raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		d.log.Warn("realtime frame undecodable", zap.Error(err))
		return
	}

	switch frame.Event {
	case EventLikedYou:
		var ev LikedYouEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			d.log.Warn("liked_you payload undecodable", zap.Error(err))
			return
		}
		for _, fn := range d.likedYouSubscribers() {
			fn(ev)
		}
	case EventMatch:
		var ev MatchEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			d.log.Warn("match payload undecodable", zap.Error(err))
			return
		}
		for _, fn := range d.matchSubscribers() {
			fn(ev)
		}
	case EventMessage:
		var ev MessageEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			d.log.Warn("message payload undecodable", zap.Error(err))
			return
		}
		for _, fn := range d.messageSubscribers() {
			fn(ev)
		}
	default:
		d.log.Debug("ignoring unknown realtime event", zap.String("event", frame.Event))
	}
}

func (d *Dispatcher) likedYouSubscribers() []func(LikedYouEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]func(LikedYouEvent), 0, len(d.likedYou))
	for _, fn := range d.likedYou {
		out = append(out, fn)
	}
	return out
}

func (d *Dispatcher) matchSubscribers() []func(MatchEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]func(MatchEvent), 0, len(d.match))
	for _, fn := range d.match {
		out = append(out, fn)
	}
	return out
}

func (d *Dispatcher) messageSubscribers() []func(MessageEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]func(MessageEvent), 0, len(d.message))
	for _, fn := range d.message {
		out = append(out, fn)
	}
	return out
}
