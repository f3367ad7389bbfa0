package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendParsesMessageHandle(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok":true,"result":{"message_id":777}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BotToken: "test-token", APIURL: server.URL})

	handle, err := client.Send(context.Background(), 42, "<b>hello</b>")
	require.NoError(t, err)
	assert.Equal(t, MessageHandle(777), handle)
	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, float64(42), gotBody["chat_id"])
	assert.Equal(t, "HTML", gotBody["parse_mode"])
}

func TestSendSurfacesAPIRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BotToken: "t", APIURL: server.URL})

	_, err := client.Send(context.Background(), 1, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestEditTargetsMessageID(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BotToken: "t", APIURL: server.URL})

	err := client.Edit(context.Background(), 42, MessageHandle(777), "updated")
	require.NoError(t, err)
	assert.Equal(t, float64(777), gotBody["message_id"])
}

func TestParseUpdate(t *testing.T) {
	payload := []byte(`{
		"update_id": 1,
		"message": {
			"message_id": 5,
			"from": {"id": 99},
			"chat": {"id": -100123, "type": "supergroup"},
			"text": "meet tomorrow at 2pm"
		}
	}`)

	msg, err := ParseUpdate(payload)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, int64(-100123), msg.ChatID)
	assert.Equal(t, int64(99), msg.UserID)
	assert.Equal(t, "meet tomorrow at 2pm", msg.Text)
	assert.False(t, msg.IsPrivate())
}

func TestParseUpdateIgnoresNonMessages(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"no message", `{"update_id":1}`},
		{"no text", `{"update_id":1,"message":{"message_id":2,"from":{"id":9},"chat":{"id":1,"type":"group"}}}`},
		{"blank text", `{"update_id":1,"message":{"message_id":2,"from":{"id":9},"chat":{"id":1,"type":"group"},"text":"  "}}`},
		{"no sender", `{"update_id":1,"message":{"message_id":2,"chat":{"id":1,"type":"group"},"text":"hi"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := ParseUpdate([]byte(tc.payload))
			require.NoError(t, err)
			assert.Nil(t, msg)
		})
	}
}

func TestParseUpdateMalformedJSON(t *testing.T) {
	_, err := ParseUpdate([]byte(`{not json`))
	assert.Error(t, err)
}

func TestIsCommand(t *testing.T) {
	msg := &Message{Text: "/track quantum computing conferences"}
	cmd, args, ok := msg.IsCommand()
	require.True(t, ok)
	assert.Equal(t, "track", cmd)
	assert.Equal(t, "quantum computing conferences", args)

	msg = &Message{Text: "/agenda@pland_bot"}
	cmd, _, ok = msg.IsCommand()
	require.True(t, ok)
	assert.Equal(t, "agenda", cmd)

	msg = &Message{Text: "meet tomorrow"}
	_, _, ok = msg.IsCommand()
	assert.False(t, ok)
}
