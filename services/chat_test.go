package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/models"
	"atrium/utils"
)

func newTokenServer(t *testing.T, exchanges *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer id-token", r.Header.Get("Authorization"))
		n := exchanges.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"accessToken": fmt.Sprintf("access-%d", n)})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExchangeTokenSourceCachesToken(t *testing.T) {
	var exchanges atomic.Int32
	srv := newTokenServer(t, &exchanges)

	ts := NewExchangeTokenSource(srv.URL, "id-token")
	ctx := context.Background()

	tok1, err := ts.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok1)

	tok2, err := ts.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, tok1, tok2)
	assert.Equal(t, int32(1), exchanges.Load(), "cached token must be reused")

	require.NoError(t, ts.Refresh(ctx))
	tok3, err := ts.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok3)
	assert.Equal(t, int32(2), exchanges.Load())
}

func TestExchangeTokenSourceRejectsEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	ts := NewExchangeTokenSource(srv.URL, "id-token")
	_, err := ts.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing access token")
}

type staticTokens struct {
	token     string
	refreshed atomic.Int32
}

func (s *staticTokens) Token(context.Context) (string, error) { return s.token, nil }
func (s *staticTokens) Refresh(context.Context) error {
	s.refreshed.Add(1)
	return nil
}

func TestChatClientSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/spaces/space-1/messages", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello floor", body["text"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.ChatMessage{Name: "m1", Text: body["text"]})
	}))
	defer srv.Close()

	client := NewChatClient(srv.URL, &staticTokens{token: "tok"}, utils.NewLogger())
	msg, err := client.SendMessage(context.Background(), "space-1", "hello floor")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.Name)
	assert.Equal(t, "hello floor", msg.Text)
}

func TestChatClientCreateSpace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/spaces", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Sales Floor", body["displayName"])
		assert.Equal(t, "ROOM", body["spaceType"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.ChatSpace{Name: "spaces/abc", DisplayName: "Sales Floor"})
	}))
	defer srv.Close()

	client := NewChatClient(srv.URL, &staticTokens{token: "tok"}, utils.NewLogger())
	space, err := client.CreateSpace(context.Background(), "Sales Floor", models.SpaceKindRoom)
	require.NoError(t, err)
	assert.Equal(t, "spaces/abc", space.Name)
}

func TestChatClientListMessagesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("pageSize"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer srv.Close()

	client := NewChatClient(srv.URL, &staticTokens{token: "tok"}, utils.NewLogger())
	msgs, err := client.ListMessages(context.Background(), "space-1")
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestChatClientRefreshesOnUnauthorized(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": map[string]string{"message": "expired"}})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.ChatMessage{Name: "m1", Text: "retry"})
	}))
	defer srv.Close()

	tokens := &staticTokens{token: "tok"}
	client := NewChatClient(srv.URL, tokens, utils.NewLogger())

	msg, err := client.SendMessage(context.Background(), "space-1", "retry")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.Name)
	assert.Equal(t, int32(1), tokens.refreshed.Load(), "401 must trigger a refresh")
	assert.Equal(t, int32(2), calls.Load())
}

func TestChatClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": map[string]string{"message": "no chat scope"}})
	}))
	defer srv.Close()

	client := NewChatClient(srv.URL, &staticTokens{token: "tok"}, utils.NewLogger())
	_, err := client.SendMessage(context.Background(), "space-1", "nope")
	require.Error(t, err)
	assert.Equal(t, "no chat scope", err.Error())
}
