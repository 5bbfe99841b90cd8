package notificator

import (
	"context"
	"errors"
	"net/smtp"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/rota/pkg/logger"
)

type recipientList []int64

func (r recipientList) IDs() []int64 { return r }

type fakeSender struct {
	mu      sync.Mutex
	sent    map[int64]string
	failFor map[int64]bool
	panicOn map[int64]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: map[int64]string{}, failFor: map[int64]bool{}, panicOn: map[int64]bool{}}
}

func (s *fakeSender) SendMessage(_ context.Context, chatID int64, text string) error {
	if s.panicOn[chatID] {
		panic("sender blew up")
	}
	if s.failFor[chatID] {
		return errors.New("Forbidden: bot was blocked by the user")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[chatID] = text
	return nil
}

func (s *fakeSender) delivered() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.sent))
	for id := range s.sent {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestNotifyDeliversDespiteFailures(t *testing.T) {
	sender := newFakeSender()
	sender.failFor[2] = true
	sender.panicOn[3] = true

	n, err := NewNotificator(logger.NewNop(), sender, recipientList(nil), 2, nil)
	require.NoError(t, err)
	defer n.Close()

	n.Notify(context.Background(), []int64{1, 2, 3, 4, 5}, "Channel @rota_news expired")

	assert.Equal(t, []int64{1, 4, 5}, sender.delivered())
	assert.Equal(t, "Channel @rota_news expired", sender.sent[1])
}

func TestNotifyAdminsUsesConfiguredOperators(t *testing.T) {
	sender := newFakeSender()
	n, err := NewNotificator(logger.NewNop(), sender, recipientList{10, 20}, 4, nil)
	require.NoError(t, err)
	defer n.Close()

	n.NotifyAdmins(context.Background(), "3 prizes are waiting for fulfillment")
	assert.Equal(t, []int64{10, 20}, sender.delivered())
}

func TestNotifyAdminsWithoutOperatorsIsNoop(t *testing.T) {
	sender := newFakeSender()
	n, err := NewNotificator(logger.NewNop(), sender, recipientList(nil), 1, nil)
	require.NoError(t, err)
	defer n.Close()

	n.NotifyAdmins(context.Background(), "ignored")
	assert.Empty(t, sender.delivered())
}

func TestNotifyAdminsMailsAdmins(t *testing.T) {
	var (
		mu   sync.Mutex
		sent = map[string]string{}
	)
	email := NewEmailNotificator("smtp.example.com", 587, "", "", "alerts@example.com", []string{"ops@example.com", "broken@example.com"})
	email.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		if to[0] == "broken@example.com" {
			return errors.New("550 mailbox unavailable")
		}
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "smtp.example.com:587", addr)
		assert.Equal(t, "alerts@example.com", from)
		sent[to[0]] = string(msg)
		return nil
	}

	sender := newFakeSender()
	n, err := NewNotificator(logger.NewNop(), sender, recipientList{1}, 2, email)
	require.NoError(t, err)
	defer n.Close()

	n.NotifyAdmins(context.Background(), "Channel @rota_news reached its target")

	assert.Equal(t, []int64{1}, sender.delivered())
	require.Contains(t, sent, "ops@example.com")
	assert.True(t, strings.HasSuffix(sent["ops@example.com"], "Channel @rota_news reached its target"))
	assert.Contains(t, sent["ops@example.com"], "To: ops@example.com\r\n")
	assert.NotContains(t, sent, "broken@example.com")
}
