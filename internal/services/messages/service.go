package messages

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aafarian/hantibink-sub003/internal/api"
	"github.com/aafarian/hantibink-sub003/internal/domain/model"
	"github.com/aafarian/hantibink-sub003/internal/realtime"
	"github.com/aafarian/hantibink-sub003/internal/services/notices"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNoOpenThread = errors.New("no conversation is open")
)

const defaultPageSize = 30

type API interface {
	Conversations(ctx context.Context) ([]api.ConversationRecord, error)
	Messages(ctx context.Context, matchID string, limit int, before string) ([]api.MessageRecord, error)
	SendMessage(ctx context.Context, matchID, clientID, text string) (api.MessageRecord, error)
}

type NoticePublisher interface {
	Publish(level notices.Level, text string)
	PublishDeferred(level notices.Level, text string)
}

// Identity resolves the signed-in user. Message direction and unread
// counting depend on it.
type Identity interface {
	UserID() string
}

type Config struct {
	PageSize int
}

// Service holds the conversation list and the currently open thread.
// Sends are optimistic: a pending message shows immediately and is
// reconciled against the server ack by client ID.
type Service struct {
	api      API
	notices  NoticePublisher
	identity Identity
	cfg      Config
	log      *zap.Logger

	newID func() string
	now   func() time.Time

	mu            sync.Mutex
	conversations []model.Conversation
	threads       map[string][]model.Message
	openThread    string
	lastMatch     *model.Match
}

func NewService(client API, publisher NoticePublisher, identity Identity, cfg Config, log *zap.Logger) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		api:      client,
		notices:  publisher,
		identity: identity,
		cfg:      cfg,
		log:      log,
		newID:    uuid.NewString,
		now:      time.Now,
		threads:  make(map[string][]model.Message),
	}
}

// LoadConversations replaces the list with the server's, newest activity
// first.
func (s *Service) LoadConversations(ctx context.Context) error {
	records, err := s.api.Conversations(ctx)
	if err != nil {
		s.notices.Publish(notices.LevelError, "Couldn't load your conversations. Pull to refresh.")
		return fmt.Errorf("fetch conversations: %w", err)
	}

	conversations := make([]model.Conversation, 0, len(records))
	for _, record := range records {
		conversations = append(conversations, conversationFromRecord(record))
	}
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastAt.After(conversations[j].LastAt)
	})

	s.mu.Lock()
	s.conversations = conversations
	s.mu.Unlock()
	return nil
}

// OpenThread loads the latest page of a conversation and marks it read.
func (s *Service) OpenThread(ctx context.Context, matchID string) ([]model.Message, error) {
	if matchID == "" {
		return nil, fmt.Errorf("%w: match id is required", ErrValidation)
	}
	records, err := s.api.Messages(ctx, matchID, s.cfg.PageSize, "")
	if err != nil {
		s.notices.Publish(notices.LevelError, "Couldn't load messages. Try again.")
		return nil, fmt.Errorf("fetch messages for %s: %w", matchID, err)
	}

	thread := make([]model.Message, 0, len(records))
	for _, record := range records {
		thread = append(thread, messageFromRecord(record))
	}
	sort.SliceStable(thread, func(i, j int) bool {
		return thread[i].SentAt.Before(thread[j].SentAt)
	})

	s.mu.Lock()
	s.threads[matchID] = thread
	s.openThread = matchID
	for i := range s.conversations {
		if s.conversations[i].MatchID == matchID {
			s.conversations[i].Unread = 0
		}
	}
	out := copyMessages(thread)
	s.mu.Unlock()
	return out, nil
}

// LoadEarlier pages backwards from the oldest loaded message.
func (s *Service) LoadEarlier(ctx context.Context) ([]model.Message, error) {
	s.mu.Lock()
	matchID := s.openThread
	var before string
	if thread := s.threads[matchID]; len(thread) > 0 {
		before = thread[0].ID
	}
	s.mu.Unlock()
	if matchID == "" {
		return nil, ErrNoOpenThread
	}

	records, err := s.api.Messages(ctx, matchID, s.cfg.PageSize, before)
	if err != nil {
		return nil, fmt.Errorf("fetch earlier messages for %s: %w", matchID, err)
	}

	earlier := make([]model.Message, 0, len(records))
	for _, record := range records {
		earlier = append(earlier, messageFromRecord(record))
	}
	sort.SliceStable(earlier, func(i, j int) bool {
		return earlier[i].SentAt.Before(earlier[j].SentAt)
	})

	s.mu.Lock()
	s.threads[matchID] = append(earlier, s.threads[matchID]...)
	out := copyMessages(s.threads[matchID])
	s.mu.Unlock()
	return out, nil
}

func (s *Service) CloseThread() {
	s.mu.Lock()
	s.openThread = ""
	s.mu.Unlock()
}

// Send posts to the open thread. The pending bubble appears at once and
// is swapped for the server's record on ack; on failure it is withdrawn
// and a notice shown.
func (s *Service) Send(ctx context.Context, text string) (model.Message, error) {
	if text == "" {
		return model.Message{}, fmt.Errorf("%w: message text is required", ErrValidation)
	}

	s.mu.Lock()
	matchID := s.openThread
	if matchID == "" {
		s.mu.Unlock()
		return model.Message{}, ErrNoOpenThread
	}
	clientID := s.newID()
	pending := model.Message{
		ID:       clientID,
		MatchID:  matchID,
		SenderID: s.identity.UserID(),
		Text:     text,
		SentAt:   s.now(),
		Pending:  true,
	}
	s.threads[matchID] = append(s.threads[matchID], pending)
	s.mu.Unlock()

	record, err := s.api.SendMessage(ctx, matchID, clientID, text)
	if err != nil {
		s.mu.Lock()
		s.threads[matchID] = withoutMessage(s.threads[matchID], clientID)
		s.mu.Unlock()
		s.notices.Publish(notices.LevelError, "Message not sent. Try again.")
		return model.Message{}, fmt.Errorf("send message: %w", err)
	}

	sent := messageFromRecord(record)
	s.mu.Lock()
	// The realtime echo may have reconciled the pending bubble already; in
	// that case the ack finds the server id in place of the client id.
	replaced := false
	thread := s.threads[matchID]
	for i := range thread {
		if thread[i].ID == clientID || thread[i].ID == sent.ID {
			thread[i] = sent
			replaced = true
			break
		}
	}
	if !replaced {
		s.threads[matchID] = append(thread, sent)
	}
	s.touchConversationLocked(matchID, sent.Text, sent.SentAt, false)
	s.mu.Unlock()
	return sent, nil
}

// ApplyMessage merges a pushed message. Messages for threads the user is
// not looking at bump the conversation's unread badge.
func (s *Service) ApplyMessage(ev realtime.MessageEvent) {
	if ev.MatchID == "" {
		return
	}
	incoming := ev.SenderID != s.identity.UserID()

	s.mu.Lock()
	if thread, ok := s.threads[ev.MatchID]; ok {
		handled := false
		for i := range thread {
			if thread[i].ID == ev.ID {
				handled = true
				break
			}
			// Echo of an optimistic send still waiting for its ack.
			if ev.ClientID != "" && thread[i].ID == ev.ClientID {
				thread[i] = model.Message{
					ID:       ev.ID,
					MatchID:  ev.MatchID,
					SenderID: ev.SenderID,
					Text:     ev.Text,
					SentAt:   ev.SentAt,
				}
				handled = true
				break
			}
		}
		if !handled {
			s.threads[ev.MatchID] = append(thread, model.Message{
				ID:       ev.ID,
				MatchID:  ev.MatchID,
				SenderID: ev.SenderID,
				Text:     ev.Text,
				SentAt:   ev.SentAt,
			})
		}
	}
	unread := incoming && s.openThread != ev.MatchID
	s.touchConversationLocked(ev.MatchID, ev.Text, ev.SentAt, unread)
	s.mu.Unlock()
}

// ApplyMatch prepends the fresh conversation, records the match for the
// celebration screen and celebrates. The notice defers behind any open
// modal.
func (s *Service) ApplyMatch(ev realtime.MatchEvent) {
	if ev.MatchID == "" {
		return
	}
	match := model.Match{
		ID:        ev.MatchID,
		UserID:    ev.UserID,
		Name:      ev.Name,
		Photo:     ev.Photo,
		CreatedAt: ev.CreatedAt,
	}

	s.mu.Lock()
	for _, conversation := range s.conversations {
		if conversation.MatchID == match.ID {
			s.mu.Unlock()
			return
		}
	}
	s.lastMatch = &match
	s.conversations = append([]model.Conversation{{
		MatchID: match.ID,
		UserID:  match.UserID,
		Name:    match.Name,
		Photo:   match.Photo,
		LastAt:  match.CreatedAt,
	}}, s.conversations...)
	s.mu.Unlock()

	s.notices.PublishDeferred(notices.LevelSuccess, fmt.Sprintf("You matched with %s!", match.Name))
}

// LatestMatch hands the most recent match to the celebration screen and
// clears it, so the screen shows once per match.
func (s *Service) LatestMatch() (model.Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastMatch == nil {
		return model.Match{}, false
	}
	match := *s.lastMatch
	s.lastMatch = nil
	return match, true
}

func (s *Service) Conversations() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

func (s *Service) Thread(matchID string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMessages(s.threads[matchID])
}

// TotalUnread is the badge count across all conversations.
func (s *Service) TotalUnread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, conversation := range s.conversations {
		total += conversation.Unread
	}
	return total
}

func (s *Service) touchConversationLocked(matchID, text string, at time.Time, unread bool) {
	for i := range s.conversations {
		if s.conversations[i].MatchID != matchID {
			continue
		}
		conversation := s.conversations[i]
		conversation.LastMessage = text
		conversation.LastAt = at
		if unread {
			conversation.Unread++
		}
		copy(s.conversations[i:], s.conversations[i+1:])
		s.conversations = s.conversations[:len(s.conversations)-1]
		s.conversations = append([]model.Conversation{conversation}, s.conversations...)
		return
	}
	// Thread exists server-side but the list has not caught up yet.
	conversation := model.Conversation{MatchID: matchID, LastMessage: text, LastAt: at}
	if unread {
		conversation.Unread = 1
	}
	s.conversations = append([]model.Conversation{conversation}, s.conversations...)
}

func withoutMessage(thread []model.Message, id string) []model.Message {
	out := thread[:0]
	for _, message := range thread {
		if message.ID != id {
			out = append(out, message)
		}
	}
	return out
}

func copyMessages(thread []model.Message) []model.Message {
	out := make([]model.Message, len(thread))
	copy(out, thread)
	return out
}

func conversationFromRecord(record api.ConversationRecord) model.Conversation {
	return model.Conversation{
		MatchID:     record.MatchID,
		UserID:      record.UserID,
		Name:        record.Name,
		Photo:       record.Photo,
		LastMessage: record.LastMessage,
		LastAt:      record.LastAt,
		Unread:      record.Unread,
	}
}

func messageFromRecord(record api.MessageRecord) model.Message {
	return model.Message{
		ID:       record.ID,
		MatchID:  record.MatchID,
		SenderID: record.SenderID,
		Text:     record.Text,
		SentAt:   record.SentAt,
	}
}
