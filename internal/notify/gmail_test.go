package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func TestBuildMIME(t *testing.T) {
	raw, err := buildMIME("Board <board@example.org>", Message{
		To:      "member@example.com",
		Subject: "Purchased: Kaffee für alle",
		HTML:    "<p>Hello</p>",
	})
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "From: Board <board@example.org>\r\n")
	assert.Contains(t, s, "To: member@example.com\r\n")
	assert.Contains(t, s, "Subject: =?utf-8?q?")
	assert.Contains(t, s, "Content-Type: text/html")
	assert.Contains(t, s, "<p>Hello</p>")

	_, err = buildMIME("board@example.org", Message{To: "not an address"})
	assert.Error(t, err)
}

func TestGmailMailer_Send(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		got  gmail.Message
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg-1"}`))
	}))
	defer srv.Close()

	m, err := NewGmailMailer(context.Background(), GmailConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh",
		From:         "board@example.org",
	}, option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{To: "member@example.com", Subject: "Hi", HTML: "<b>x</b>"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasSuffix(path, "/users/me/messages/send"), path)
	raw, err := base64.URLEncoding.DecodeString(got.Raw)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "To: member@example.com")
	assert.Contains(t, string(raw), "Subject: Hi")
}

func TestNewGmailMailer_Validation(t *testing.T) {
	_, err := NewGmailMailer(context.Background(), GmailConfig{From: "a@b.c"})
	assert.Error(t, err)

	_, err = NewGmailMailer(context.Background(), GmailConfig{
		ClientID: "id", ClientSecret: "s", RefreshToken: "r", From: "not an address",
	})
	assert.Error(t, err)
}
