package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aafarian/hantibink-sub003/internal/domain/enums"
)

// TokenSource supplies the bearer token for authenticated calls. An empty
// token means the call goes out unauthenticated.
type TokenSource interface {
	AccessToken() string
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		log:     log,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type likesPageBody struct {
	Data            json.RawMessage `json:"data"`
	TotalCount      int             `json:"totalCount"`
	TotalLikesCount int             `json:"totalLikesCount"`
}

// WhoLikedMe fetches one page of the incoming-likes list together with the
// authoritative count of not-yet-acted-upon likes.
func (c *Client) WhoLikedMe(ctx context.Context, limit, offset int) (LikesPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var body likesPageBody
	if err := c.do(ctx, http.MethodGet, "/actions/who-liked-me", query, nil, &body); err != nil {
		return LikesPage{}, err
	}

	var records []LikeRecord
	if err := json.Unmarshal(body.Data, &records); err != nil {
		return LikesPage{}, fmt.Errorf("%w: who-liked-me data is not an array: %v", ErrMalformedResponse, err)
	}

	return LikesPage{
		Records:         records,
		TotalCount:      body.TotalCount,
		TotalLikesCount: body.TotalLikesCount,
	}, nil
}

type actionRequest struct {
	TargetID string `json:"targetId"`
	ActionID string `json:"actionId,omitempty"`
	Type     string `json:"type"`
}

// SubmitAction sends a like, super-like or pass for one subject. A like-back
// on a mutual like reports isMatch together with the thread to open.
func (c *Client) SubmitAction(ctx context.Context, targetID, actionID string, action enums.ActionType) (ActionResult, error) {
	if !action.Valid() {
		return ActionResult{}, fmt.Errorf("invalid action type %q", action)
	}

	var result ActionResult
	req := actionRequest{TargetID: targetID, ActionID: actionID, Type: string(action)}
	if err := c.do(ctx, http.MethodPost, "/actions", nil, req, &result); err != nil {
		return ActionResult{}, err
	}
	return result, nil
}

func (c *Client) Discover(ctx context.Context, limit int) ([]ProfileRecord, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var profiles []ProfileRecord
	if err := c.do(ctx, http.MethodGet, "/discover", query, nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (c *Client) Conversations(ctx context.Context) ([]ConversationRecord, error) {
	var conversations []ConversationRecord
	if err := c.do(ctx, http.MethodGet, "/matches", nil, nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (c *Client) Messages(ctx context.Context, matchID string, limit int, before string) ([]MessageRecord, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if before != "" {
		query.Set("before", before)
	}

	var messages []MessageRecord
	if err := c.do(ctx, http.MethodGet, "/matches/"+url.PathEscape(matchID)+"/messages", query, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

type sendMessageRequest struct {
	ClientID string `json:"clientId"`
	Text     string `json:"text"`
}

func (c *Client) SendMessage(ctx context.Context, matchID, clientID, text string) (MessageRecord, error) {
	var message MessageRecord
	req := sendMessageRequest{ClientID: clientID, Text: text}
	if err := c.do(ctx, http.MethodPost, "/matches/"+url.PathEscape(matchID)+"/messages", nil, req, &message); err != nil {
		return MessageRecord{}, err
	}
	return message, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Login(ctx context.Context, email, password string) (SessionPayload, error) {
	var session SessionPayload
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &session); err != nil {
		return SessionPayload{}, err
	}
	return session, nil
}

func (c *Client) Register(ctx context.Context, payload RegistrationPayload) (SessionPayload, error) {
	var session SessionPayload
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, payload, &session); err != nil {
		return SessionPayload{}, err
	}
	return session, nil
}

func (c *Client) Me(ctx context.Context) (ProfileRecord, error) {
	var profile ProfileRecord
	if err := c.do(ctx, http.MethodGet, "/me", nil, nil, &profile); err != nil {
		return ProfileRecord{}, err
	}
	return profile, nil
}

type locationRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c *Client) UpdateLocation(ctx context.Context, lat, lon float64) (PlaceRecord, error) {
	var place PlaceRecord
	if err := c.do(ctx, http.MethodPut, "/me/location", nil, locationRequest{Lat: lat, Lon: lon}, &place); err != nil {
		return PlaceRecord{}, err
	}
	return place, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Code: "HTTP_" + strconv.Itoa(resp.StatusCode), Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("%w: decode %s %s envelope: %v", ErrMalformedResponse, method, path, err)
	}

	if !env.Success || resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Code: "UNKNOWN", Message: "request rejected"}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		c.log.Debug("api rejection",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("code", apiErr.Code),
			zap.Int("status", resp.StatusCode),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode %s %s data: %v", ErrMalformedResponse, method, path, err)
	}
	return nil
}
