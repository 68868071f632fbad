package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aafarian/hantibink-sub003/internal/api"
	"github.com/aafarian/hantibink-sub003/internal/domain/enums"
	"github.com/aafarian/hantibink-sub003/internal/domain/model"
	"github.com/aafarian/hantibink-sub003/internal/services/notices"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrDeckEmpty       = errors.New("no more profiles to show")
	ErrNothingToRewind = errors.New("nothing to rewind")
)

const (
	defaultFetchSize = 20
	defaultLowWater  = 5
)

type Feed interface {
	Discover(ctx context.Context, limit int) ([]api.ProfileRecord, error)
}

type ActionSubmitter interface {
	SubmitAction(ctx context.Context, targetID, actionID string, action enums.ActionType) (api.ActionResult, error)
}

type NoticePublisher interface {
	Publish(level notices.Level, text string)
	PublishDeferred(level notices.Level, text string)
}

type Config struct {
	FetchSize int
	LowWater  int
}

type MatchResult struct {
	Matched bool
	MatchID string
}

// Deck is the swipe screen's candidate queue. Cards leave the front on a
// successful action; the queue tops itself up below the low-water mark.
type Deck struct {
	feed    Feed
	actions ActionSubmitter
	notices NoticePublisher
	cfg     Config
	log     *zap.Logger

	mu         sync.Mutex
	queue      []model.Profile
	seen       map[string]bool
	lastPassed *model.Profile
}

func NewDeck(feed Feed, actions ActionSubmitter, publisher NoticePublisher, cfg Config, log *zap.Logger) *Deck {
	if cfg.FetchSize <= 0 {
		cfg.FetchSize = defaultFetchSize
	}
	if cfg.LowWater <= 0 {
		cfg.LowWater = defaultLowWater
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Deck{
		feed:    feed,
		actions: actions,
		notices: publisher,
		cfg:     cfg,
		log:     log,
		seen:    make(map[string]bool),
	}
}

// Fill fetches candidates when the queue runs below the low-water mark.
// Already-shown profiles are filtered out.
func (d *Deck) Fill(ctx context.Context) error {
	d.mu.Lock()
	if len(d.queue) >= d.cfg.LowWater {
		d.mu.Unlock()
		return nil
	}
	fetchSize := d.cfg.FetchSize
	d.mu.Unlock()

	profiles, err := d.feed.Discover(ctx, fetchSize)
	if err != nil {
		return fmt.Errorf("fetch discovery candidates: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, record := range profiles {
		if record.ID == "" || d.seen[record.ID] {
			continue
		}
		d.seen[record.ID] = true
		d.queue = append(d.queue, profileFromRecord(record))
	}
	return nil
}

func (d *Deck) Current() (model.Profile, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return model.Profile{}, false
	}
	return d.queue[0], true
}

func (d *Deck) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Swipe acts on the front card. The card only leaves the deck once the
// backend accepts the action; a rejected swipe keeps it in place.
func (d *Deck) Swipe(ctx context.Context, action enums.ActionType) (MatchResult, error) {
	if !action.Valid() {
		return MatchResult{}, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}

	d.mu.Lock()
	if len(d.queue) == 0 {
		d.mu.Unlock()
		return MatchResult{}, ErrDeckEmpty
	}
	card := d.queue[0]
	d.mu.Unlock()

	result, err := d.actions.SubmitAction(ctx, card.ID, "", action)
	if err != nil {
		d.log.Warn("swipe failed",
			zap.String("target", card.ID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		d.notices.Publish(notices.LevelError, "That didn't go through. Try again.")
		return MatchResult{}, fmt.Errorf("submit %s swipe: %w", action, err)
	}

	d.mu.Lock()
	if len(d.queue) > 0 && d.queue[0].ID == card.ID {
		d.queue = d.queue[1:]
	}
	if action == enums.ActionPass {
		d.lastPassed = &card
	} else {
		d.lastPassed = nil
	}
	low := len(d.queue) < d.cfg.LowWater
	d.mu.Unlock()

	if result.IsMatch {
		d.notices.PublishDeferred(notices.LevelSuccess, "It's a match! Say hi from your messages.")
	}
	if low {
		// Best-effort top-up; the next explicit Fill retries on failure.
		if err := d.Fill(ctx); err != nil {
			d.log.Debug("deck top-up failed", zap.Error(err))
		}
	}
	return MatchResult{Matched: result.IsMatch, MatchID: result.MatchID}, nil
}

// Rewind puts the most recently passed profile back on top. One level only.
func (d *Deck) Rewind() (model.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastPassed == nil {
		return model.Profile{}, ErrNothingToRewind
	}
	card := *d.lastPassed
	d.lastPassed = nil
	d.queue = append([]model.Profile{card}, d.queue...)
	return card, nil
}

func profileFromRecord(record api.ProfileRecord) model.Profile {
	photos := make([]model.Photo, 0, len(record.Photos))
	for _, photo := range record.Photos {
		photos = append(photos, model.Photo{URL: photo.URL, IsMain: photo.IsMain})
	}
	return model.Profile{
		ID:       record.ID,
		Name:     record.Name,
		Age:      record.Age,
		Location: record.Location,
		Bio:      record.Bio,
		Photos:   photos,
	}
}
