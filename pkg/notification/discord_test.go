package notification

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/dupescan/pkg/config"
	"github.com/autobrr/dupescan/pkg/dedupe"
	"github.com/autobrr/dupescan/pkg/filerecord"
)

type webhook struct {
	mu       sync.Mutex
	messages []DiscordMessage
}

func (w *webhook) handler(t *testing.T) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var msg DiscordMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.mu.Lock()
		w.messages = append(w.messages, msg)
		w.mu.Unlock()

		rw.WriteHeader(http.StatusNoContent)
	}
}

func clusters(n int) []dedupe.Cluster {
	var out []dedupe.Cluster
	for i := 0; i < n; i++ {
		out = append(out, dedupe.Cluster{
			Kind: dedupe.KindContent,
			Size: 1 << 20,
			Members: []filerecord.FileRecord{
				{Path: fmt.Sprintf("/data/%d/a", i)},
				{Path: fmt.Sprintf("/data/%d/b", i)},
			},
		})
	}
	return out
}

func newSender(t *testing.T, cfg config.NotificationsConfig) (Sender, *webhook) {
	hook := &webhook{}
	srv := httptest.NewServer(hook.handler(t))
	t.Cleanup(srv.Close)

	cfg.Service.Discord = srv.URL
	return NewDiscordSender(logrus.NewEntry(logrus.New()), cfg), hook
}

func TestDiscord_DetailedBatches(t *testing.T) {
	sender, hook := newSender(t, config.NotificationsConfig{Detailed: true})
	require.True(t, sender.CanSend())

	var fields []Field
	for i, c := range clusters(12) {
		fields = append(fields, sender.BuildField(ActionFor(c), BuildOptions{Cluster: c, Index: i + 1}))
	}

	require.NoError(t, sender.Send("Duplicates", "12 clusters", time.Second, fields))

	require.Len(t, hook.messages, 2)
	assert.Len(t, hook.messages[0].Embeds, 10)
	assert.Len(t, hook.messages[1].Embeds, 3)

	first := hook.messages[0].Embeds[0]
	assert.Equal(t, "**#1 (1.0 MiB each)**", first.Description)
	require.Len(t, first.Fields, 4)
	assert.Equal(t, "Duplicate", first.Fields[0].Value)
	assert.Equal(t, "2", first.Fields[1].Value)
	assert.Equal(t, "1.0 MiB", first.Fields[2].Value)
	assert.Equal(t, "/data/0/a\n/data/0/b", first.Fields[3].Value)

	last := hook.messages[1].Embeds[2]
	assert.Equal(t, "Duplicates - Summary", last.Title)
}

func TestDiscord_SummaryOnly(t *testing.T) {
	sender, hook := newSender(t, config.NotificationsConfig{})

	var fields []Field
	for i, c := range clusters(3) {
		fields = append(fields, sender.BuildField(ActionFor(c), BuildOptions{Cluster: c, Index: i + 1}))
	}

	require.NoError(t, sender.Send("Duplicates", "3 clusters", time.Second, fields))

	require.Len(t, hook.messages, 1)
	require.Len(t, hook.messages[0].Embeds, 1)
	assert.Equal(t, "3 clusters", hook.messages[0].Embeds[0].Description)
}

func TestDiscord_SkipEmptyRun(t *testing.T) {
	sender, hook := newSender(t, config.NotificationsConfig{SkipEmptyRun: true})

	require.NoError(t, sender.Send("Duplicates", "nothing", time.Second, nil))
	assert.Empty(t, hook.messages)
}

func TestDiscord_HardlinkField(t *testing.T) {
	sender, _ := newSender(t, config.NotificationsConfig{})

	c := dedupe.Cluster{Kind: dedupe.KindHardlink, Size: 10, Members: []filerecord.FileRecord{{Path: "/x"}, {Path: "/y"}}}
	f := sender.BuildField(ActionFor(c), BuildOptions{Cluster: c, Index: 1})

	var parsed []DiscordEmbedsField
	require.NoError(t, json.Unmarshal([]byte(f.Value), &parsed))
	require.Len(t, parsed, 3)
	assert.Equal(t, "Hardlink", parsed[0].Value)
}

func TestDiscord_Unreachable(t *testing.T) {
	sender := NewDiscordSender(logrus.NewEntry(logrus.New()), config.NotificationsConfig{
		Service: config.NotificationService{Discord: "http://127.0.0.1:1/webhook"},
	})
	assert.Equal(t, "discord", sender.Name())
	assert.Error(t, sender.Send("Duplicates", "x", time.Second, nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
}
