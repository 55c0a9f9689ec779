package notify

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeevandhara/bloodbank/pkg/logger"
)

func TestMailerDisabledIsNoop(t *testing.T) {
	m := NewMailer(MailConfig{}, logger.Default())
	assert.False(t, m.Enabled())
	assert.NoError(t, m.Send("donor@example.com", "subject", "body"))
}

func TestMailerBuildsMessage(t *testing.T) {
	m := NewMailer(MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "alerts",
		Password: "secret",
		From:     "alerts@jeevandhara.org",
	}, logger.Default())

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, m.Send("donor@example.com", "Appointment reminder", "See you tomorrow."))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "alerts@jeevandhara.org", gotFrom)
	assert.Equal(t, []string{"donor@example.com"}, gotTo)

	text := string(gotMsg)
	assert.Contains(t, text, "Subject: Appointment reminder\r\n")
	assert.Contains(t, text, "To: donor@example.com\r\n")
	assert.True(t, strings.HasSuffix(text, "\r\nSee you tomorrow."))
}

func TestMailerSendError(t *testing.T) {
	m := NewMailer(MailConfig{Host: "smtp.example.com", Port: 587}, logger.Default())
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := m.Send("donor@example.com", "s", "b")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "donor@example.com")
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(logger.Default())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 },
		time.Second, 10*time.Millisecond)

	hub.Broadcast(Alert{BloodType: "O-", Message: "urgent need"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var alert Alert
	require.NoError(t, conn.ReadJSON(&alert))
	assert.Equal(t, "O-", alert.BloodType)
	assert.Equal(t, "urgent need", alert.Message)
	assert.False(t, alert.SentAt.IsZero())
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub(logger.Default())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 0 },
		time.Second, 10*time.Millisecond)
}

func TestHubConcurrentBroadcasts(t *testing.T) {
	hub := NewHub(logger.Default())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 },
		time.Second, 10*time.Millisecond)

	const writers, perWriter = 8, 25

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				hub.Broadcast(Alert{BloodType: "O-", Message: "stock critical"})
			}
		}()
	}

	// Every frame must arrive intact; unserialized writers would corrupt
	// the stream or close the connection mid-frame.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < writers*perWriter; i++ {
		var alert Alert
		require.NoError(t, conn.ReadJSON(&alert))
		assert.Equal(t, "O-", alert.BloodType)
		assert.Equal(t, "stock critical", alert.Message)
	}
	wg.Wait()

	assert.Equal(t, 1, hub.Subscribers())
}
