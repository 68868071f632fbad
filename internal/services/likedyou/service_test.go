package likedyou

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/aafarian/hantibink-sub003/internal/api"
	"github.com/aafarian/hantibink-sub003/internal/domain/enums"
	"github.com/aafarian/hantibink-sub003/internal/realtime"
	"github.com/aafarian/hantibink-sub003/internal/services/notices"
)

type fetchCall struct {
	limit  int
	offset int
}

type scriptedFetcher struct {
	pages []api.LikesPage
	errs  []error
	calls []fetchCall
}

func (f *scriptedFetcher) WhoLikedMe(_ context.Context, limit, offset int) (api.LikesPage, error) {
	f.calls = append(f.calls, fetchCall{limit: limit, offset: offset})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return api.LikesPage{}, err
		}
	}
	if len(f.pages) == 0 {
		return api.LikesPage{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

type actionCall struct {
	targetID string
	actionID string
	action   enums.ActionType
}

type fakeActions struct {
	result api.ActionResult
	err    error
	calls  []actionCall
}

func (f *fakeActions) SubmitAction(_ context.Context, targetID, actionID string, action enums.ActionType) (api.ActionResult, error) {
	f.calls = append(f.calls, actionCall{targetID: targetID, actionID: actionID, action: action})
	if f.err != nil {
		return api.ActionResult{}, f.err
	}
	return f.result, nil
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func record(id string, super bool, likedAt time.Time) api.LikeRecord {
	return api.LikeRecord{
		ID:          id,
		ActionID:    "action-" + id,
		Name:        "user-" + id,
		Age:         28,
		IsSuperLike: super,
		LikedAt:     likedAt,
	}
}

func newTestInbox(fetcher *scriptedFetcher, actions *fakeActions) (*Inbox, *notices.Center) {
	center := notices.NewCenter(8, nil)
	inbox := NewInbox(fetcher, actions, center, Config{BatchSize: 10, PlaceholderPhoto: "placeholder.png"}, nil)
	return inbox, center
}

func snapshotIDs(in *Inbox) []string {
	snap := in.Snapshot()
	ids := make([]string, 0, len(snap.Items))
	for _, item := range snap.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func drainNotices(c *notices.Center) []notices.Notice {
	var out []notices.Notice
	for {
		select {
		case n := <-c.C():
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestLoadSortsSuperLikesFirstThenRecency(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []api.LikesPage{{
		Records: []api.LikeRecord{
			record("r1", false, baseTime.Add(-1*time.Hour)),
			record("s1", true, baseTime.Add(-4*time.Hour)),
			record("r2", false, baseTime.Add(-30*time.Minute)),
			record("r3", false, baseTime.Add(-2*time.Hour)),
			record("s2", true, baseTime.Add(-1*time.Hour)),
			record("r4", false, baseTime.Add(-5*time.Hour)),
			record("r5", false, baseTime.Add(-10*time.Minute)),
			record("s3", true, baseTime.Add(-2*time.Hour)),
			record("r6", false, baseTime.Add(-6*time.Hour)),
			record("r7", false, baseTime.Add(-7*time.Hour)),
		},
		TotalCount: 25,
	}}}
	inbox, _ := newTestInbox(fetcher, &fakeActions{})

	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	want := []string{"s2", "s3", "s1", "r5", "r2", "r1", "r3", "r4", "r6", "r7"}
	if diff := cmp.Diff(want, snapshotIDs(inbox)); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}

	snap := inbox.Snapshot()
	if !snap.HasMore {
		t.Fatalf("expected more available with totalCount 25")
	}
	if snap.TotalCount != 25 {
		t.Fatalf("unexpected total: %d", snap.TotalCount)
	}
	if snap.Items[0].MainPhoto != "placeholder.png" {
		t.Fatalf("record without photos should fall back to placeholder, got %s", snap.Items[0].MainPhoto)
	}
}

func TestLoadMoreSkipsDuplicatesAndAdvancesByUniqueCount(t *testing.T) {
	first := make([]api.LikeRecord, 0, 10)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		first = append(first, record(id, false, baseTime.Add(-time.Duration(len(first))*time.Minute)))
	}
	second := []api.LikeRecord{
		record("i", false, baseTime.Add(-8*time.Minute)), // duplicate
		record("j", false, baseTime.Add(-9*time.Minute)), // duplicate
		record("k", false, baseTime.Add(-10*time.Minute)),
		record("l", false, baseTime.Add(-11*time.Minute)),
		record("m", false, baseTime.Add(-12*time.Minute)),
		record("n", false, baseTime.Add(-13*time.Minute)),
		record("o", false, baseTime.Add(-14*time.Minute)),
		record("p", false, baseTime.Add(-15*time.Minute)),
		record("q", false, baseTime.Add(-16*time.Minute)),
		record("r", false, baseTime.Add(-17*time.Minute)),
	}
	fetcher := &scriptedFetcher{pages: []api.LikesPage{
		{Records: first, TotalCount: 30},
		{Records: second, TotalCount: 30},
	}}
	inbox, _ := newTestInbox(fetcher, &fakeActions{})

	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := inbox.LoadMore(context.Background()); err != nil {
		t.Fatalf("load more: %v", err)
	}

	ids := snapshotIDs(inbox)
	if len(ids) != 18 {
		t.Fatalf("expected 18 unique rows, got %d", len(ids))
	}
	counts := make(map[string]int)
	for _, id := range ids {
		counts[id]++
	}
	for id, n := range counts {
		if n != 1 {
			t.Fatalf("id %s appears %d times", id, n)
		}
	}

	// Cursor advanced by the 8 unique additions, not the raw batch of 10.
	if len(fetcher.calls) != 2 {
		t.Fatalf("unexpected fetch calls: %+v", fetcher.calls)
	}
	if fetcher.calls[1].offset != 10 {
		t.Fatalf("second fetch should start at 10, got %d", fetcher.calls[1].offset)
	}
	if err := inbox.LoadMore(context.Background()); err != nil {
		t.Fatalf("third fetch: %v", err)
	}
	if fetcher.calls[2].offset != 18 {
		t.Fatalf("third fetch should start at 18 (unique additions only), got %d", fetcher.calls[2].offset)
	}
}

func TestLoadMoreReSortsWholeCombinedList(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []api.LikesPage{
		{Records: []api.LikeRecord{
			record("r1", false, baseTime.Add(-time.Hour)),
		}, TotalCount: 3},
		{Records: []api.LikeRecord{
			record("s1", true, baseTime.Add(-2*time.Hour)),
		}, TotalCount: 3},
	}}
	inbox, _ := newTestInbox(fetcher, &fakeActions{})
	inbox.cfg.BatchSize = 1

	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := inbox.LoadMore(context.Background()); err != nil {
		t.Fatalf("load more: %v", err)
	}

	// The super-like from the later batch must not stay on the tail.
	want := []string{"s1", "r1"}
	if diff := cmp.Diff(want, snapshotIDs(inbox)); diff != "" {
		t.Fatalf("combined list not re-sorted (-want +got):\n%s", diff)
	}
}

func TestLoadMoreReSortsLiveArrivalIntoPlace(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []api.LikesPage{
		{Records: []api.LikeRecord{
			record("r1", false, baseTime.Add(-time.Hour)),
		}, TotalCount: 3},
		{Records: []api.LikeRecord{
			record("s1", true, baseTime.Add(-3*time.Hour)),
		}, TotalCount: 3},
	}}
	inbox, _ := newTestInbox(fetcher, &fakeActions{})
	inbox.cfg.BatchSize = 1

	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	inbox.Apply(realtime.LikedYouEvent{
		Kind:       realtime.LikedYouAdd,
		User:       realtime.LikedYouUser{ID: "fresh"},
		ActionID:   "action-fresh",
		ActionType: "like",
		LikedAt:    baseTime.Add(-2 * time.Hour), // oldest regular, yet on top
	})
	if diff := cmp.Diff([]string{"fresh", "r1"}, snapshotIDs(inbox)); diff != "" {
		t.Fatalf("live add should sit on top before the next fetch (-want +got):\n%s", diff)
	}

	if err := inbox.LoadMore(context.Background()); err != nil {
		t.Fatalf("load more: %v", err)
	}

	// The batch re-sort ends the freshness exception: the live arrival
	// drops into plain comparator order.
	want := []string{"s1", "r1", "fresh"}
	if diff := cmp.Diff(want, snapshotIDs(inbox)); diff != "" {
		t.Fatalf("batch fetch must fold the live arrival into sort order (-want +got):\n%s", diff)
	}
	for _, item := range inbox.Snapshot().Items {
		if item.ID == "fresh" && !item.IsNew {
			t.Fatalf("re-sort ends the ordering exception, not the IsNew badge")
		}
	}
}

func TestHasMoreFalseOnShortBatch(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []api.LikesPage{
		{Records: []api.LikeRecord{
			record("a", false, baseTime),
			record("b", false, baseTime.Add(-time.Minute)),
		}, TotalCount: 25},
	}}
	inbox, _ := newTestInbox(fetcher, &fakeActions{})

	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if inbox.Snapshot().HasMore {
		t.Fatalf("short batch must clear hasMore even with a larger total")
	}
}

func TestHasMoreFalseWhenOffsetReachesTotal(t *testing.T) {
	records := make([]api.LikeRecord, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, record(string(rune('a'+i)), false, baseTime.Add(-time.Duration(i)*time.Minute)))
	}
	fetcher := &scriptedFetcher{pages: []api.LikesPage{
		{Records: records, TotalCount: 10},
	}}
	inbox, _ := newTestInbox(fetcher, &fakeActions{})

	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if inbox.Snapshot().HasMore {
		t.Fatalf("full batch covering the total must clear hasMore (no empty round-trip)")
	}
}

func TestFetchFailureKeepsListAndSurfacesOneNotice(t *testing.T) {
	fetcher := &scriptedFetcher{
		pages: []api.LikesPage{{Records: []api.LikeRecord{
			record("a", false, baseTime),
		}, TotalCount: 20}},
	}
	inbox, center := newTestInbox(fetcher, &fakeActions{})
	inbox.cfg.BatchSize = 1

	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	drainNotices(center)

	fetcher.errs = []error{errors.New("connection reset")}
	if err := inbox.LoadMore(context.Background()); err == nil {
		t.Fatalf("expected load-more failure to propagate")
	}

	snap := inbox.Snapshot()
	if diff := cmp.Diff([]string{"a"}, snapshotIDs(inbox)); diff != "" {
		t.Fatalf("failure must leave the list untouched (-want +got):\n%s", diff)
	}
	if snap.HasMore {
		t.Fatalf("failure must clear hasMore")
	}

	got := drainNotices(center)
	if len(got) != 1 || got[0].Level != notices.LevelError {
		t.Fatalf("expected a single error notice, got %+v", got)
	}

	// No automatic retry happened.
	if len(fetcher.calls) != 2 {
		t.Fatalf("unexpected fetch calls after failure: %+v", fetcher.calls)
	}
}

func TestApplyAddPrependsNewArrivalAboveSuperLikes(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []api.LikesPage{
		{Records: []api.LikeRecord{
			record("s1", true, baseTime),
			record("r1", false, baseTime.Add(-time.Minute)),
		}, TotalCount: 2},
	}}
	inbox, _ := newTestInbox(fetcher, &fakeActions{})
	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	inbox.Apply(realtime.LikedYouEvent{
		Kind:       realtime.LikedYouAdd,
		User:       realtime.LikedYouUser{ID: "fresh", Name: "Fresh"},
		ActionID:   "action-fresh",
		ActionType: "like",
		LikedAt:    baseTime.Add(-time.Hour), // older than everything, still on top
	})

	want := []string{"fresh", "s1", "r1"}
	if diff := cmp.Diff(want, snapshotIDs(inbox)); diff != "" {
		t.Fatalf("live add must prepend regardless of sort key (-want +got):\n%s", diff)
	}

	snap := inbox.Snapshot()
	if !snap.Items[0].IsNew {
		t.Fatalf("live arrival should carry IsNew")
	}
	if snap.TotalCount != 3 {
		t.Fatalf("live add should grow the known total, got %d", snap.TotalCount)
	}
}

func TestApplyAddIgnoresPresentID(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []api.LikesPage{
		{Records: []api.LikeRecord{record("a", false, baseTime)}, TotalCount: 1},
	}}
	inbox, center := newTestInbox(fetcher, &fakeActions{})
	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	inbox.Apply(realtime.LikedYouEvent{
		Kind: realtime.LikedYouAdd,
		User: realtime.LikedYouUser{ID: "a"},
	})

	if diff := cmp.Diff([]string{"a"}, snapshotIDs(inbox)); diff != "" {
		t.Fatalf("duplicate add must be a no-op (-want +got):\n%s", diff)
	}
	if snap := inbox.Snapshot(); snap.TotalCount != 1 {
		t.Fatalf("duplicate add must not change the total, got %d", snap.TotalCount)
	}
	if got := drainNotices(center); len(got) != 0 {
		t.Fatalf("duplicate add must not notify, got %+v", got)
	}
}

func TestApplyRemoveAbsentIDStillDecrementsFlooredAtZero(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []api.LikesPage{
		{Records: []api.LikeRecord{record("a", false, baseTime)}, TotalCount: 1},
	}}
	inbox, _ := newTestInbox(fetcher, &fakeActions{})
	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	inbox.Apply(realtime.LikedYouEvent{Kind: realtime.LikedYouRemove, UserID: "ghost", Reason: "passed"})
	if diff := cmp.Diff([]string{"a"}, snapshotIDs(inbox)); diff != "" {
		t.Fatalf("absent-id remove must leave the list unchanged (-want +got):\n%s", diff)
	}
	if snap := inbox.Snapshot(); snap.TotalCount != 0 {
		t.Fatalf("count should still decrement, got %d", snap.TotalCount)
	}

	inbox.Apply(realtime.LikedYouEvent{Kind: realtime.LikedYouRemove, UserID: "ghost", Reason: "passed"})
	if snap := inbox.Snapshot(); snap.TotalCount != 0 {
		t.Fatalf("count must floor at zero, got %d", snap.TotalCount)
	}
}

func TestMatchedRemoveClosesDetailAndDefersNotice(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []api.LikesPage{
		{Records: []api.LikeRecord{record("a", false, baseTime)}, TotalCount: 1},
	}}
	inbox, center := newTestInbox(fetcher, &fakeActions{})
	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !inbox.OpenDetail("a") {
		t.Fatalf("open detail for present id should succeed")
	}
	otherModal := center.AcquireGate() // e.g. the photo viewer

	inbox.Apply(realtime.LikedYouEvent{Kind: realtime.LikedYouRemove, UserID: "a", Reason: "matched"})

	snap := inbox.Snapshot()
	if snap.OpenDetailID != "" {
		t.Fatalf("detail view of the removed subject must close")
	}
	if len(snap.Items) != 0 {
		t.Fatalf("removed subject must leave the list")
	}
	if got := drainNotices(center); len(got) != 0 {
		t.Fatalf("match notice must wait for the remaining modal, got %+v", got)
	}

	otherModal()
	got := drainNotices(center)
	if len(got) != 1 || got[0].Level != notices.LevelSuccess {
		t.Fatalf("match notice should flush once all modals close, got %+v", got)
	}
}

func TestLikeBackRemovesRowAndReportsMatchThread(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []api.LikesPage{
		{Records: []api.LikeRecord{
			record("a", false, baseTime),
			record("b", false, baseTime.Add(-time.Minute)),
		}, TotalCount: 2},
	}}
	actions := &fakeActions{result: api.ActionResult{IsMatch: true, MatchID: "m-42"}}
	inbox, center := newTestInbox(fetcher, actions)
	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	result, err := inbox.LikeBack(context.Background(), "a")
	if err != nil {
		t.Fatalf("like back: %v", err)
	}
	if !result.Matched || result.MatchID != "m-42" {
		t.Fatalf("unexpected match result: %+v", result)
	}
	if len(actions.calls) != 1 || actions.calls[0].action != enums.ActionLike || actions.calls[0].actionID != "action-a" {
		t.Fatalf("unexpected action submission: %+v", actions.calls)
	}
	if diff := cmp.Diff([]string{"b"}, snapshotIDs(inbox)); diff != "" {
		t.Fatalf("acted-on row must leave the list (-want +got):\n%s", diff)
	}
	if snap := inbox.Snapshot(); snap.TotalCount != 1 {
		t.Fatalf("total should drop with the acted-on row, got %d", snap.TotalCount)
	}
	if got := drainNotices(center); len(got) != 1 || got[0].Level != notices.LevelSuccess {
		t.Fatalf("expected a match notice, got %+v", got)
	}
}

func TestActSurfacesBusinessRejectionAndKeepsRow(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []api.LikesPage{
		{Records: []api.LikeRecord{record("a", false, baseTime)}, TotalCount: 1},
	}}
	actions := &fakeActions{err: &api.APIError{Status: 403, Code: "ACTION_NOT_ALLOWED", Message: "nope"}}
	inbox, center := newTestInbox(fetcher, actions)
	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := inbox.Pass(context.Background(), "a"); err == nil {
		t.Fatalf("expected rejection to propagate")
	}
	if diff := cmp.Diff([]string{"a"}, snapshotIDs(inbox)); diff != "" {
		t.Fatalf("rejected action must leave the row in place (-want +got):\n%s", diff)
	}
	if got := drainNotices(center); len(got) != 1 || got[0].Level != notices.LevelError {
		t.Fatalf("expected one error notice, got %+v", got)
	}
}

func TestActOnUnknownIDFails(t *testing.T) {
	inbox, _ := newTestInbox(&scriptedFetcher{}, &fakeActions{})
	if _, err := inbox.LikeBack(context.Background(), "missing"); !errors.Is(err, ErrNotInList) {
		t.Fatalf("expected ErrNotInList, got %v", err)
	}
}

func TestRefreshReplacesStateOutright(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []api.LikesPage{
		{Records: []api.LikeRecord{record("old", false, baseTime)}, TotalCount: 5},
		{Records: []api.LikeRecord{record("new", false, baseTime)}, TotalCount: 1},
	}}
	inbox, _ := newTestInbox(fetcher, &fakeActions{})

	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	inbox.Apply(realtime.LikedYouEvent{
		Kind: realtime.LikedYouAdd,
		User: realtime.LikedYouUser{ID: "live"},
	})

	if err := inbox.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if diff := cmp.Diff([]string{"new"}, snapshotIDs(inbox)); diff != "" {
		t.Fatalf("refresh must replace, not merge (-want +got):\n%s", diff)
	}
	snap := inbox.Snapshot()
	if snap.TotalCount != 1 {
		t.Fatalf("refresh must adopt the fresh total, got %d", snap.TotalCount)
	}
	if len(fetcher.calls) != 2 || fetcher.calls[1].offset != 0 {
		t.Fatalf("refresh must restart at offset 0, calls: %+v", fetcher.calls)
	}
}

func TestLoadMoreIsNoopWhenExhausted(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []api.LikesPage{
		{Records: []api.LikeRecord{record("a", false, baseTime)}, TotalCount: 1},
	}}
	inbox, _ := newTestInbox(fetcher, &fakeActions{})
	if err := inbox.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := inbox.LoadMore(context.Background()); err != nil {
		t.Fatalf("exhausted load-more should be a silent no-op: %v", err)
	}
	if len(fetcher.calls) != 1 {
		t.Fatalf("exhausted load-more must not hit the network, calls: %+v", fetcher.calls)
	}
}
