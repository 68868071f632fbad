package likedyou

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aafarian/hantibink-sub003/internal/api"
	"github.com/aafarian/hantibink-sub003/internal/domain/enums"
	"github.com/aafarian/hantibink-sub003/internal/domain/model"
	"github.com/aafarian/hantibink-sub003/internal/domain/rules"
	"github.com/aafarian/hantibink-sub003/internal/realtime"
	"github.com/aafarian/hantibink-sub003/internal/services/notices"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotInList  = errors.New("like is not in the list")
)

const defaultBatchSize = 10

type Fetcher interface {
	WhoLikedMe(ctx context.Context, limit, offset int) (api.LikesPage, error)
}

type ActionSubmitter interface {
	SubmitAction(ctx context.Context, targetID, actionID string, action enums.ActionType) (api.ActionResult, error)
}

type NoticePublisher interface {
	Publish(level notices.Level, text string)
	PublishDeferred(level notices.Level, text string)
	AcquireGate() func()
}

type Config struct {
	BatchSize        int
	PlaceholderPhoto string
}

// Snapshot is a copy of the current display state for the UI shell.
type Snapshot struct {
	Items        []model.IncomingLike
	TotalCount   int
	HasMore      bool
	Loading      bool
	OpenDetailID string
}

type MatchResult struct {
	Matched bool
	MatchID string
}

// Inbox owns the "liked you" list for the lifetime of its screen: it merges
// server-paginated batches, deduplicates by id, keeps the display order, and
// reconciles live add/remove events as they arrive.
type Inbox struct {
	fetch   Fetcher
	actions ActionSubmitter
	notices NoticePublisher
	cfg     Config
	log     *zap.Logger
	now     func() time.Time

	mu            sync.Mutex
	items         []model.IncomingLike
	offset        int
	total         int
	hasMore       bool
	loading       bool
	openDetailID  string
	releaseDetail func()
}

func NewInbox(fetch Fetcher, actions ActionSubmitter, publisher NoticePublisher, cfg Config, log *zap.Logger) *Inbox {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Inbox{
		fetch:   fetch,
		actions: actions,
		notices: publisher,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
		hasMore: true,
	}
}

// Load performs the initial fetch, replacing the list outright.
func (in *Inbox) Load(ctx context.Context) error {
	return in.fetchBatch(ctx, false)
}

// LoadMore appends the next page. Only ids not already displayed are kept,
// and the cursor advances by the unique additions alone.
func (in *Inbox) LoadMore(ctx context.Context) error {
	return in.fetchBatch(ctx, true)
}

// Refresh is an authoritative resync: cursor and count reset, then the list
// is replaced by a fresh initial fetch. Nothing merges across a refresh.
func (in *Inbox) Refresh(ctx context.Context) error {
	in.mu.Lock()
	in.offset = 0
	in.hasMore = true
	in.total = 0
	in.mu.Unlock()

	return in.fetchBatch(ctx, false)
}

func (in *Inbox) fetchBatch(ctx context.Context, loadMore bool) error {
	in.mu.Lock()
	if loadMore && !in.hasMore {
		in.mu.Unlock()
		return nil
	}
	offset := 0
	seen := make(map[string]bool, len(in.items))
	if loadMore {
		offset = in.offset
		// Snapshot of the currently displayed ids. A live event landing
		// while the request is in flight is invisible to this filter;
		// the full re-sort below keeps the list consistent on the next
		// pass.
		for _, like := range in.items {
			seen[like.ID] = true
		}
	}
	batchSize := in.cfg.BatchSize
	in.loading = true
	in.mu.Unlock()

	page, err := in.fetch.WhoLikedMe(ctx, batchSize, offset)
	if err != nil {
		in.mu.Lock()
		in.loading = false
		in.hasMore = false
		in.mu.Unlock()

		in.log.Warn("who-liked-me fetch failed", zap.Int("offset", offset), zap.Error(err))
		in.notices.Publish(notices.LevelError, "Couldn't load your likes. Pull to refresh to retry.")
		return fmt.Errorf("fetch who-liked-me batch: %w", err)
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	in.loading = false
	in.total = page.TotalCount

	added := 0
	if !loadMore {
		in.items = in.items[:0]
	}
	for _, record := range page.Records {
		if seen[record.ID] {
			continue
		}
		seen[record.ID] = true
		in.items = append(in.items, likeFromRecord(record, in.cfg.PlaceholderPhoto))
		added++
	}
	in.offset = offset + added

	// Re-sort the whole combined list, not just the new tail: batches
	// arrive in server order, which may not match the display order after
	// local removals.
	sort.SliceStable(in.items, func(i, j int) bool { return rules.LikeBefore(in.items[i], in.items[j]) })

	in.hasMore = len(page.Records) == batchSize && offset+len(page.Records) < page.TotalCount
	return nil
}

// Apply reconciles one live update event into the in-memory list.
func (in *Inbox) Apply(ev realtime.LikedYouEvent) {
	switch ev.Kind {
	case realtime.LikedYouAdd:
		in.applyAdd(ev)
	case realtime.LikedYouRemove:
		in.applyRemove(ev)
	default:
		in.log.Debug("ignoring liked_you event of unknown kind", zap.String("kind", ev.Kind))
	}
}

func (in *Inbox) applyAdd(ev realtime.LikedYouEvent) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if ev.User.ID == "" || in.indexOf(ev.User.ID) >= 0 {
		return
	}

	likedAt := ev.LikedAt
	if likedAt.IsZero() {
		likedAt = in.now()
	}
	photos := make([]model.Photo, 0, len(ev.User.Photos))
	for _, photo := range ev.User.Photos {
		photos = append(photos, model.Photo{URL: photo.URL, IsMain: photo.IsMain})
	}

	like := model.IncomingLike{
		ID:          ev.User.ID,
		ActionID:    ev.ActionID,
		Name:        ev.User.Name,
		Age:         ev.User.Age,
		Location:    ev.User.Location,
		Bio:         ev.User.Bio,
		Photos:      photos,
		MainPhoto:   rules.MainPhotoURL(photos, in.cfg.PlaceholderPhoto),
		IsSuperLike: ev.ActionType == string(enums.ActionSuperLike),
		LikedAt:     likedAt,
		IsNew:       true,
	}

	// Fresh live arrivals surface at the very top regardless of the
	// super-like/recency order; the next batch fetch re-sorts them in.
	in.items = append([]model.IncomingLike{like}, in.items...)
	in.total++
}

func (in *Inbox) applyRemove(ev realtime.LikedYouEvent) {
	in.mu.Lock()
	in.removeLocked(ev.UserID)
	release := in.closeDetailIfOpenLocked(ev.UserID)
	in.mu.Unlock()

	if release != nil {
		release()
	}
	if enums.ParseRemoveReason(ev.Reason) == enums.RemoveMatched {
		in.notices.PublishDeferred(notices.LevelSuccess, "It's a match! Say hi from your messages.")
	}
}

// LikeBack submits a like for one row of the inbox. On success the row
// leaves the list; a mutual like reports the match thread to open.
func (in *Inbox) LikeBack(ctx context.Context, id string) (MatchResult, error) {
	return in.act(ctx, id, enums.ActionLike)
}

// Pass dismisses one row of the inbox.
func (in *Inbox) Pass(ctx context.Context, id string) error {
	_, err := in.act(ctx, id, enums.ActionPass)
	return err
}

func (in *Inbox) act(ctx context.Context, id string, action enums.ActionType) (MatchResult, error) {
	if id == "" {
		return MatchResult{}, ErrValidation
	}

	in.mu.Lock()
	idx := in.indexOf(id)
	if idx < 0 {
		in.mu.Unlock()
		return MatchResult{}, ErrNotInList
	}
	actionID := in.items[idx].ActionID
	in.mu.Unlock()

	result, err := in.actions.SubmitAction(ctx, id, actionID, action)
	if err != nil {
		in.log.Warn("like action failed",
			zap.String("target", id),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		in.notices.Publish(notices.LevelError, "That didn't go through. Try again.")
		return MatchResult{}, fmt.Errorf("submit %s action: %w", action, err)
	}

	in.mu.Lock()
	in.removeLocked(id)
	release := in.closeDetailIfOpenLocked(id)
	in.mu.Unlock()

	if release != nil {
		release()
	}
	if result.IsMatch {
		in.notices.PublishDeferred(notices.LevelSuccess, "It's a match! Say hi from your messages.")
	}
	return MatchResult{Matched: result.IsMatch, MatchID: result.MatchID}, nil
}

// OpenDetail marks a row's detail modal as shown. While open it holds the
// notice gate, so match toasts wait for it.
func (in *Inbox) OpenDetail(id string) bool {
	in.mu.Lock()

	if in.indexOf(id) < 0 {
		in.mu.Unlock()
		return false
	}
	previous := in.releaseDetail
	in.openDetailID = id
	in.releaseDetail = in.notices.AcquireGate()
	in.mu.Unlock()

	if previous != nil {
		previous()
	}
	return true
}

func (in *Inbox) CloseDetail() {
	in.mu.Lock()
	release := in.releaseDetail
	in.openDetailID = ""
	in.releaseDetail = nil
	in.mu.Unlock()

	if release != nil {
		release()
	}
}

func (in *Inbox) Snapshot() Snapshot {
	in.mu.Lock()
	defer in.mu.Unlock()

	items := make([]model.IncomingLike, len(in.items))
	copy(items, in.items)
	return Snapshot{
		Items:        items,
		TotalCount:   in.total,
		HasMore:      in.hasMore,
		Loading:      in.loading,
		OpenDetailID: in.openDetailID,
	}
}

func (in *Inbox) indexOf(id string) int {
	for i, like := range in.items {
		if like.ID == id {
			return i
		}
	}
	return -1
}

// removeLocked filters the id out unconditionally and decrements the known
// total, floored at zero. Removing an absent id still decrements.
func (in *Inbox) removeLocked(id string) {
	if idx := in.indexOf(id); idx >= 0 {
		in.items = append(in.items[:idx], in.items[idx+1:]...)
	}
	if in.total > 0 {
		in.total--
	}
}

func (in *Inbox) closeDetailIfOpenLocked(id string) func() {
	if in.openDetailID != id || id == "" {
		return nil
	}
	release := in.releaseDetail
	in.openDetailID = ""
	in.releaseDetail = nil
	return release
}

func likeFromRecord(record api.LikeRecord, placeholder string) model.IncomingLike {
	photos := make([]model.Photo, 0, len(record.Photos))
	for _, photo := range record.Photos {
		photos = append(photos, model.Photo{URL: photo.URL, IsMain: photo.IsMain})
	}

	return model.IncomingLike{
		ID:          record.ID,
		ActionID:    record.ActionID,
		Name:        record.Name,
		Age:         record.Age,
		Location:    record.Location,
		Bio:         record.Bio,
		Photos:      photos,
		MainPhoto:   rules.MainPhotoURL(photos, placeholder),
		IsSuperLike: record.IsSuperLike,
		LikedAt:     record.LikedAt,
	}
}
