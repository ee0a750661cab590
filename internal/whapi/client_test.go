package whapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path    string
	auth    string
	payload map[string]any
}

func newTestClient(t *testing.T, status int) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&captured.payload)
		}
		w.WriteHeader(status)
		w.Write([]byte(`{"sent":true}`))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token", nil), captured
}

func TestSendText(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK)

	err := client.SendText(context.Background(), "15551234567", "hello")
	require.NoError(t, err)
	require.Equal(t, "/messages/text", captured.path)
	require.Equal(t, "Bearer test-token", captured.auth)
	require.Equal(t, "15551234567", captured.payload["to"])
	require.Equal(t, "hello", captured.payload["body"])
}

func TestSendTextServerError(t *testing.T) {
	client, _ := newTestClient(t, http.StatusBadGateway)

	err := client.SendText(context.Background(), "15551234567", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestSendButtonsPayloadShape(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK)

	err := client.SendButtons(context.Background(), "15551234567", "Choose", []string{"Yes", "No"})
	require.NoError(t, err)
	require.Equal(t, "/messages/interactive", captured.path)
	require.Equal(t, "button", captured.payload["type"])

	body := captured.payload["body"].(map[string]any)
	require.Equal(t, "Choose", body["text"])

	action := captured.payload["action"].(map[string]any)
	buttons := action["buttons"].([]any)
	require.Len(t, buttons, 2)

	first := buttons[0].(map[string]any)
	require.Equal(t, "quick_reply", first["type"])
	require.Equal(t, "btn_0", first["id"])
	require.Equal(t, "Yes", first["title"])
}

func TestSendButtonsTruncatesAndCaps(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK)

	long := strings.Repeat("x", 40)
	err := client.SendButtons(context.Background(), "1555", "Choose", []string{long, "A", "B", "C"})
	require.NoError(t, err)

	action := captured.payload["action"].(map[string]any)
	buttons := action["buttons"].([]any)
	require.Len(t, buttons, 3)

	first := buttons[0].(map[string]any)
	require.Len(t, []rune(first["title"].(string)), maxButtonTitleRunes)
}

func TestSendButtonsRequiresUsableLabel(t *testing.T) {
	client, _ := newTestClient(t, http.StatusOK)

	err := client.SendButtons(context.Background(), "1555", "Choose", []string{"", "   "})
	require.ErrorIs(t, err, ErrNoButtons)

	err = client.SendButtons(context.Background(), "1555", "Choose", nil)
	require.ErrorIs(t, err, ErrNoButtons)
}

func TestSendLinkDelegatesToText(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK)

	err := client.SendLink(context.Background(), "1555", "See results: https://example.com/r", "https://example.com/r")
	require.NoError(t, err)
	require.Equal(t, "/messages/text", captured.path)
}

func TestSendList(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK)

	sections := []map[string]any{{"title": "Options", "rows": []map[string]string{{"id": "1", "title": "One"}}}}
	err := client.SendList(context.Background(), "1555", "Pick one", "Open", sections)
	require.NoError(t, err)
	require.Equal(t, "/messages/interactive", captured.path)
	require.Equal(t, "list", captured.payload["type"])
}

func TestMarkAsReadBestEffort(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK)

	client.MarkAsRead(context.Background(), "msg-1")
	require.Equal(t, "/messages/msg-1/read", captured.path)

	// Failure must not panic or surface.
	failing := NewClient("http://127.0.0.1:1", "tok", nil)
	failing.MarkAsRead(context.Background(), "msg-2")
}
