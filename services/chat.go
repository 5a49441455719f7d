package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"atrium/models"
	"atrium/utils"
)

// TokenSource supplies bearer tokens for the external chat API. Refresh
// discards any cached token so the next Token call fetches a fresh one.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

// ExchangeTokenSource trades a verified ID token for a chat access token at
// a token-exchange endpoint and caches the result until expiry. The cache
// lives on the instance, scoped to the session that owns it.
type ExchangeTokenSource struct {
	client   *resty.Client
	endpoint string
	idToken  string
	ttl      time.Duration

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewExchangeTokenSource(endpoint, idToken string) *ExchangeTokenSource {
	return &ExchangeTokenSource{
		client:   resty.New().SetTimeout(10 * time.Second),
		endpoint: endpoint,
		idToken:  idToken,
		ttl:      time.Hour,
	}
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

func (ts *ExchangeTokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expiry) {
		return ts.token, nil
	}

	var body tokenResponse
	resp, err := ts.client.R().
		SetContext(ctx).
		SetAuthToken(ts.idToken).
		SetResult(&body).
		Post(ts.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("token exchange failed: %s", resp.Status())
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token endpoint response missing access token")
	}

	ts.token = body.AccessToken
	ts.expiry = time.Now().Add(ts.ttl)
	return ts.token, nil
}

func (ts *ExchangeTokenSource) Refresh(_ context.Context) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.token = ""
	ts.expiry = time.Time{}
	return nil
}

// ChatClient talks to the external chat collaborator. The core only needs
// the createSpace/sendMessage/listMessages contract.
type ChatClient struct {
	http   *resty.Client
	tokens TokenSource
	logger *utils.Logger
}

func NewChatClient(baseURL string, tokens TokenSource, logger *utils.Logger) *ChatClient {
	return &ChatClient{
		http:   resty.New().SetBaseURL(baseURL).SetTimeout(15 * time.Second),
		tokens: tokens,
		logger: logger,
	}
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// do runs one authenticated request, refreshing the token and retrying once
// on 401.
func (c *ChatClient) do(ctx context.Context, build func(req *resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}

		req := c.http.R().SetContext(ctx).SetAuthToken(token)
		resp, err := build(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() == 401 && attempt == 0 {
			c.logger.Debug("Chat token rejected, refreshing")
			if err := c.tokens.Refresh(ctx); err != nil {
				return nil, err
			}
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("chat request failed after token refresh")
}

func chatAPIError(resp *resty.Response, fallback string) error {
	var body chatError
	if v, ok := resp.Error().(*chatError); ok && v != nil {
		body = *v
	}
	if body.Error.Message != "" {
		return fmt.Errorf("%s", body.Error.Message)
	}
	return fmt.Errorf("%s: %s", fallback, resp.Status())
}

// CreateSpace creates a chat space; kind defaults to DM.
func (c *ChatClient) CreateSpace(ctx context.Context, name string, kind models.SpaceKind) (*models.ChatSpace, error) {
	if kind == "" {
		kind = models.SpaceKindDM
	}
	spaceType := "DIRECT_MESSAGE"
	threading := "UNTHREADED"
	if kind == models.SpaceKindRoom {
		spaceType = "ROOM"
		threading = "THREADED"
	}

	var space models.ChatSpace
	resp, err := c.do(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetBody(map[string]interface{}{
				"displayName": name,
				"spaceType":   spaceType,
				"spaceDetails": map[string]string{
					"spaceThreadingState": threading,
				},
			}).
			SetResult(&space).
			SetError(&chatError{}).
			Post("/spaces")
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, chatAPIError(resp, "failed to create chat space")
	}
	return &space, nil
}

// SendMessage posts a text message into a space.
func (c *ChatClient) SendMessage(ctx context.Context, spaceID, text string) (*models.ChatMessage, error) {
	var message models.ChatMessage
	resp, err := c.do(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetBody(map[string]string{"text": text}).
			SetResult(&message).
			SetError(&chatError{}).
			Post(fmt.Sprintf("/spaces/%s/messages", spaceID))
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, chatAPIError(resp, "failed to send message")
	}
	return &message, nil
}

type listMessagesResponse struct {
	Messages []models.ChatMessage `json:"messages"`
}

// ListMessages fetches the most recent messages in a space.
func (c *ChatClient) ListMessages(ctx context.Context, spaceID string) ([]models.ChatMessage, error) {
	var body listMessagesResponse
	resp, err := c.do(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetQueryParam("pageSize", "100").
			SetResult(&body).
			SetError(&chatError{}).
			Get(fmt.Sprintf("/spaces/%s/messages", spaceID))
	})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, chatAPIError(resp, "failed to fetch messages")
	}
	if body.Messages == nil {
		return []models.ChatMessage{}, nil
	}
	return body.Messages, nil
}
