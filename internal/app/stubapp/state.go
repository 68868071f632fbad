package stubapp

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aafarian/hantibink-sub003/internal/api"
	"github.com/aafarian/hantibink-sub003/internal/config"
	"github.com/aafarian/hantibink-sub003/internal/domain/enums"
)

var (
	errUnauthorized   = errors.New("unauthorized")
	errBadCredentials = errors.New("bad credentials")
	errEmailTaken     = errors.New("email taken")
)

// DemoEmail and DemoPassword sign in to the pre-seeded account.
const (
	DemoEmail    = "demo@hantibink.app"
	DemoPassword = "hantibink"
)

type account struct {
	email    string
	password string
	profile  api.ProfileRecord
}

// state is the stub's in-memory world: one demo account with a seeded
// incoming-likes list, a discovery pool and a couple of conversations.
type state struct {
	cities []config.CityConfig

	mu         sync.Mutex
	accounts   map[string]*account
	tokens     map[string]string
	likes      []api.LikeRecord
	candidates []api.ProfileRecord
	matches    []api.ConversationRecord
	messages   map[string][]api.MessageRecord
	matchSeq   int
}

var seedNames = []string{
	"Ani", "Seda", "Lusine", "Narine", "Mariam", "Gayane", "Sona", "Tatev",
	"Armen", "Tigran", "Vahe", "Davit", "Karen", "Hayk", "Aram", "Levon",
}

func newState(cities []config.CityConfig, seedLikes int) *state {
	s := &state{
		cities:   cities,
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		messages: make(map[string][]api.MessageRecord),
	}

	demoID := uuid.NewString()
	s.accounts[demoID] = &account{
		email:    DemoEmail,
		password: DemoPassword,
		profile: api.ProfileRecord{
			ID:       demoID,
			Name:     "Demo",
			Age:      27,
			Location: "Yerevan",
			Photos:   []api.PhotoRecord{{URL: "https://cdn.hantibink.app/demo/me.jpg", IsMain: true}},
		},
	}

	now := time.Now().UTC()
	for i := 0; i < seedLikes; i++ {
		name := seedNames[i%len(seedNames)]
		like := api.LikeRecord{
			ID:          uuid.NewString(),
			ActionID:    uuid.NewString(),
			Name:        fmt.Sprintf("%s %d", name, i+1),
			Age:         21 + i%15,
			Location:    "Yerevan",
			Bio:         "Coffee, hikes and bad puns.",
			IsSuperLike: i%7 == 0,
			LikedAt:     now.Add(-time.Duration(i) * time.Hour),
		}
		if i%4 != 3 {
			like.Photos = []api.PhotoRecord{{URL: fmt.Sprintf("https://cdn.hantibink.app/seed/%d.jpg", i), IsMain: true}}
		}
		s.likes = append(s.likes, like)
	}
	s.sortLikesLocked()

	for i := 0; i < 40; i++ {
		name := seedNames[(i+5)%len(seedNames)]
		s.candidates = append(s.candidates, api.ProfileRecord{
			ID:       uuid.NewString(),
			Name:     fmt.Sprintf("%s %d", name, 100+i),
			Age:      20 + i%18,
			Location: "Gyumri",
			Bio:      "Here for the khorovats.",
			Photos:   []api.PhotoRecord{{URL: fmt.Sprintf("https://cdn.hantibink.app/pool/%d.jpg", i), IsMain: true}},
		})
	}

	return s
}

func (s *state) sortLikesLocked() {
	sort.SliceStable(s.likes, func(i, j int) bool {
		if s.likes[i].IsSuperLike != s.likes[j].IsSuperLike {
			return s.likes[i].IsSuperLike
		}
		return s.likes[i].LikedAt.After(s.likes[j].LikedAt)
	})
}

func (s *state) login(email, password string) (api.SessionPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, acct := range s.accounts {
		if acct.email == email && acct.password == password {
			return s.issueLocked(id), nil
		}
	}
	return api.SessionPayload{}, errBadCredentials
}

func (s *state) register(payload api.RegistrationPayload) (api.SessionPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if acct.email == payload.Email {
			return api.SessionPayload{}, errEmailTaken
		}
	}
	id := uuid.NewString()
	s.accounts[id] = &account{
		email:    payload.Email,
		password: payload.Password,
		profile: api.ProfileRecord{
			ID:     id,
			Name:   payload.Name,
			Photos: payload.Photos,
		},
	}
	return s.issueLocked(id), nil
}

func (s *state) issueLocked(userID string) api.SessionPayload {
	token := uuid.NewString()
	s.tokens[token] = userID
	return api.SessionPayload{
		UserID:       userID,
		AccessToken:  token,
		RefreshToken: uuid.NewString(),
		User:         s.accounts[userID].profile,
	}
}

func (s *state) authenticate(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[token]
	if !ok {
		return "", errUnauthorized
	}
	return userID, nil
}

func (s *state) profile(userID string) (api.ProfileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[userID]
	if !ok {
		return api.ProfileRecord{}, errUnauthorized
	}
	return acct.profile, nil
}

func (s *state) whoLikedMe(limit, offset int) ([]api.LikeRecord, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(s.likes)
	if offset >= total {
		return nil, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := make([]api.LikeRecord, end-offset)
	copy(page, s.likes[offset:end])
	return page, total
}

// act consumes an incoming like when the target had one. A like or
// super-like back on such a target is a match.
func (s *state) act(targetID string, action enums.ActionType) (api.ActionResult, *api.ConversationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var consumed *api.LikeRecord
	kept := s.likes[:0]
	for i := range s.likes {
		if s.likes[i].ID == targetID && consumed == nil {
			like := s.likes[i]
			consumed = &like
			continue
		}
		kept = append(kept, s.likes[i])
	}
	s.likes = kept

	if consumed == nil || action == enums.ActionPass {
		return api.ActionResult{}, nil
	}

	s.matchSeq++
	photo := ""
	if len(consumed.Photos) > 0 {
		photo = consumed.Photos[0].URL
	}
	conversation := api.ConversationRecord{
		MatchID: fmt.Sprintf("m-%d", s.matchSeq),
		UserID:  consumed.ID,
		Name:    consumed.Name,
		Photo:   photo,
		LastAt:  time.Now().UTC(),
	}
	s.matches = append([]api.ConversationRecord{conversation}, s.matches...)
	return api.ActionResult{IsMatch: true, MatchID: conversation.MatchID}, &conversation
}

func (s *state) discover(limit int) []api.ProfileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.candidates) {
		limit = len(s.candidates)
	}
	out := make([]api.ProfileRecord, limit)
	copy(out, s.candidates[:limit])
	// Rotate so repeat fetches see fresh faces.
	s.candidates = append(s.candidates[limit:], s.candidates[:limit]...)
	return out
}

func (s *state) conversations() []api.ConversationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.ConversationRecord, len(s.matches))
	copy(out, s.matches)
	return out
}

func (s *state) threadMessages(matchID string, limit int) []api.MessageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread := s.messages[matchID]
	if limit > 0 && len(thread) > limit {
		thread = thread[len(thread)-limit:]
	}
	out := make([]api.MessageRecord, len(thread))
	copy(out, thread)
	return out
}

func (s *state) appendMessage(matchID, senderID, clientID, text string) api.MessageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	message := api.MessageRecord{
		ID:       uuid.NewString(),
		ClientID: clientID,
		MatchID:  matchID,
		SenderID: senderID,
		Text:     text,
		SentAt:   time.Now().UTC(),
	}
	s.messages[matchID] = append(s.messages[matchID], message)
	for i := range s.matches {
		if s.matches[i].MatchID == matchID {
			s.matches[i].LastMessage = text
			s.matches[i].LastAt = message.SentAt
		}
	}
	return message
}

// injectLike seeds a fresh incoming like at runtime and returns it, for
// the realtime push path.
func (s *state) injectLike(name string, superLike bool) api.LikeRecord {
	like := api.LikeRecord{
		ID:          uuid.NewString(),
		ActionID:    uuid.NewString(),
		Name:        name,
		Age:         24,
		Location:    "Yerevan",
		IsSuperLike: superLike,
		LikedAt:     time.Now().UTC(),
		Photos:      []api.PhotoRecord{{URL: "https://cdn.hantibink.app/live/" + uuid.NewString() + ".jpg", IsMain: true}},
	}
	s.mu.Lock()
	s.likes = append(s.likes, like)
	s.sortLikesLocked()
	s.mu.Unlock()
	return like
}

func (s *state) nearestCity(lat, lon float64) (api.PlaceRecord, bool) {
	best := api.PlaceRecord{}
	bestDist := math.MaxFloat64
	for _, city := range s.cities {
		d := haversineKM(lat, lon, city.Lat, city.Lon)
		if d < bestDist {
			bestDist = d
			best = api.PlaceRecord{CityID: city.ID, City: city.Name}
		}
	}
	return best, best.CityID != ""
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
