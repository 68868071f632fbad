package stubapp

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aafarian/hantibink-sub003/internal/api"
	"github.com/aafarian/hantibink-sub003/internal/domain/enums"
	"github.com/aafarian/hantibink-sub003/internal/realtime"
)

type routeDeps struct {
	state *state
	hub   *hub
	log   *zap.Logger
}

func registerRoutes(r chi.Router, deps routeDeps) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", deps.handleLogin)
		r.Post("/auth/register", deps.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(deps.state))
			r.Get("/me", deps.handleMe)
			r.Put("/me/location", deps.handleUpdateLocation)
			r.Get("/actions/who-liked-me", deps.handleWhoLikedMe)
			r.Post("/actions", deps.handleAction)
			r.Get("/discover", deps.handleDiscover)
			r.Get("/matches", deps.handleConversations)
			r.Get("/matches/{matchID}/messages", deps.handleMessages)
			r.Post("/matches/{matchID}/messages", deps.handleSendMessage)

			// Dev-only: fabricate realtime traffic against the client.
			r.Post("/dev/likes", deps.handleInjectLike)
		})
	})

	r.Get("/ws", deps.hub.ServeHTTP)
}

func authMiddleware(st *state) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}
			userID, err := st.authenticate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token")
				return
			}
			r.Header.Set("X-User-ID", userID)
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(value string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func (d routeDeps) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	session, err := d.state.login(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "BAD_CREDENTIALS", "email or password is wrong")
		return
	}
	writeData(w, http.StatusOK, session)
}

func (d routeDeps) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload api.RegistrationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	if payload.Email == "" || payload.Password == "" || payload.Name == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "email, password and name are required")
		return
	}
	session, err := d.state.register(payload)
	if err != nil {
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "an account with this email already exists")
		return
	}
	writeData(w, http.StatusCreated, session)
}

func (d routeDeps) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := d.state.profile(r.Header.Get("X-User-ID"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unknown user")
		return
	}
	writeData(w, http.StatusOK, profile)
}

func (d routeDeps) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lon < -180 || req.Lon > 180 {
		writeError(w, http.StatusBadRequest, "VALIDATION", "coordinates out of range")
		return
	}
	place, ok := d.state.nearestCity(req.Lat, req.Lon)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "NO_CITY", "no supported city near these coordinates")
		return
	}
	writeData(w, http.StatusOK, place)
}

func (d routeDeps) handleWhoLikedMe(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	offset := queryInt(r, "offset", 0)
	page, total := d.state.whoLikedMe(limit, offset)
	if page == nil {
		page = []api.LikeRecord{}
	}
	writeData(w, http.StatusOK, struct {
		Data            []api.LikeRecord `json:"data"`
		TotalCount      int              `json:"totalCount"`
		TotalLikesCount int              `json:"totalLikesCount"`
	}{Data: page, TotalCount: total, TotalLikesCount: total})
}

func (d routeDeps) handleAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetID string `json:"targetId"`
		ActionID string `json:"actionId"`
		Type     string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	action := enums.ActionType(req.Type)
	if req.TargetID == "" || !action.Valid() {
		writeError(w, http.StatusBadRequest, "VALIDATION", "targetId and a valid type are required")
		return
	}

	result, conversation := d.state.act(req.TargetID, action)
	if conversation != nil {
		d.hub.Broadcast(realtime.EventLikedYou, realtime.LikedYouEvent{
			Kind:   realtime.LikedYouRemove,
			UserID: req.TargetID,
			Reason: "matched",
		})
		d.hub.Broadcast(realtime.EventMatch, realtime.MatchEvent{
			MatchID:   conversation.MatchID,
			UserID:    conversation.UserID,
			Name:      conversation.Name,
			Photo:     conversation.Photo,
			CreatedAt: conversation.LastAt,
		})
	}
	writeData(w, http.StatusOK, result)
}

func (d routeDeps) handleDiscover(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	writeData(w, http.StatusOK, d.state.discover(limit))
}

func (d routeDeps) handleConversations(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, d.state.conversations())
}

func (d routeDeps) handleMessages(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	limit := queryInt(r, "limit", 30)
	writeData(w, http.StatusOK, d.state.threadMessages(matchID, limit))
}

func (d routeDeps) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	var req struct {
		ClientID string `json:"clientId"`
		Text     string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "text is required")
		return
	}

	message := d.state.appendMessage(matchID, r.Header.Get("X-User-ID"), req.ClientID, req.Text)
	d.hub.Broadcast(realtime.EventMessage, realtime.MessageEvent{
		ID:       message.ID,
		ClientID: message.ClientID,
		MatchID:  message.MatchID,
		SenderID: message.SenderID,
		Text:     message.Text,
		SentAt:   message.SentAt,
	})
	writeData(w, http.StatusCreated, message)
}

// handleInjectLike fabricates an incoming like and pushes the add event,
// so a connected client shows it live.
func (d routeDeps) handleInjectLike(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		SuperLike bool   `json:"superLike"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body")
		return
	}
	if req.Name == "" {
		req.Name = "Surprise Admirer"
	}

	like := d.state.injectLike(req.Name, req.SuperLike)
	actionType := string(enums.ActionLike)
	if like.IsSuperLike {
		actionType = string(enums.ActionSuperLike)
	}
	d.hub.Broadcast(realtime.EventLikedYou, realtime.LikedYouEvent{
		Kind: realtime.LikedYouAdd,
		User: realtime.LikedYouUser{
			ID:       like.ID,
			Name:     like.Name,
			Age:      like.Age,
			Location: like.Location,
			Bio:      like.Bio,
			Photos:   like.Photos,
		},
		ActionID:   like.ActionID,
		ActionType: actionType,
		LikedAt:    like.LikedAt,
	})
	writeData(w, http.StatusCreated, like)
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
