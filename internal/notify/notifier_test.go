package notify

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypt0inf0/openalgo-chart/internal/models"
	"github.com/crypt0inf0/openalgo-chart/internal/sound"
)

// recordingBroadcaster captures pushed events for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	event string
	data  map[string]any
}

func (b *recordingBroadcaster) Broadcast(event string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	payload, _ := data.(map[string]any)
	b.events = append(b.events, recordedEvent{event: event, data: payload})
}

func (b *recordingBroadcaster) count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, ev := range b.events {
		if ev.event == event {
			n++
		}
	}
	return n
}

func testEvent(alertID string) models.TriggerEvent {
	return models.TriggerEvent{
		AlertID:      alertID,
		Symbol:       "BTCUSDT",
		Exchange:     "BINANCE",
		Direction:    "up",
		Price:        "50000",
		NumericPrice: 50000,
		ClosePrice:   50010,
		Timestamp:    time.Now(),
		Condition:    models.ConditionCrossing,
	}
}

func toastOnly() models.NotificationSettings {
	s := models.DefaultNotificationSettings()
	s.PlaySound = false
	return s
}

func (n *Notifier) timerCount() (toasts, results int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.toastTimers), len(n.resultTimers)
}

func TestToastChannel(t *testing.T) {
	t.Run("Show arms an auto-dismiss timer", func(t *testing.T) {
		bc := &recordingBroadcaster{}
		n := New(bc, nil, nil)
		defer n.Destroy()

		n.HandleTrigger(testEvent("a1"), toastOnly())
		assert.Equal(t, 1, bc.count("toast"))
		toasts, _ := n.timerCount()
		assert.Equal(t, 1, toasts)
	})

	t.Run("Replace not stack for the same alert", func(t *testing.T) {
		bc := &recordingBroadcaster{}
		n := New(bc, nil, nil)
		defer n.Destroy()

		n.HandleTrigger(testEvent("a1"), toastOnly())
		n.HandleTrigger(testEvent("a1"), toastOnly())

		assert.Equal(t, 2, bc.count("toast"))
		assert.Equal(t, 1, bc.count("toast_dismiss"))
		toasts, _ := n.timerCount()
		assert.Equal(t, 1, toasts)
	})

	t.Run("Manual dismiss cancels the pending timer", func(t *testing.T) {
		bc := &recordingBroadcaster{}
		n := New(bc, nil, nil)
		defer n.Destroy()

		n.HandleTrigger(testEvent("a1"), toastOnly())
		n.DismissToast("a1")

		toasts, _ := n.timerCount()
		assert.Zero(t, toasts)
		assert.Equal(t, 1, bc.count("toast_dismiss"))
	})

	t.Run("Double dismiss is safe", func(t *testing.T) {
		bc := &recordingBroadcaster{}
		n := New(bc, nil, nil)
		defer n.Destroy()

		n.HandleTrigger(testEvent("a1"), toastOnly())
		n.DismissToast("a1")
		n.DismissToast("a1")
		assert.Equal(t, 1, bc.count("toast_dismiss"))
	})

	t.Run("Toast message renders the template", func(t *testing.T) {
		bc := &recordingBroadcaster{}
		n := New(bc, nil, nil)
		defer n.Destroy()

		n.HandleTrigger(testEvent("a1"), toastOnly())
		require.NotEmpty(t, bc.events)
		assert.Equal(t, "BTCUSDT crossing 50000", bc.events[0].data["message"])
	})
}

func TestSoundChannel(t *testing.T) {
	t.Run("Trigger allocates one playback handle per alert", func(t *testing.T) {
		bc := &recordingBroadcaster{}
		player := sound.NewPlayer(sound.NewManager(), bc)
		n := New(bc, player, nil)
		defer n.Destroy()

		settings := models.DefaultNotificationSettings()
		settings.ShowToast = false
		n.HandleTrigger(testEvent("a1"), settings)
		n.HandleTrigger(testEvent("a2"), settings)

		assert.Equal(t, 2, player.Active())
		assert.Equal(t, 2, bc.count("sound"))
	})

	t.Run("Sound failure does not block the toast channel", func(t *testing.T) {
		bc := &recordingBroadcaster{}
		player := sound.NewPlayer(nil, bc) // no tone available
		n := New(bc, player, nil)
		defer n.Destroy()

		n.HandleTrigger(testEvent("a1"), models.DefaultNotificationSettings())
		assert.Equal(t, 1, bc.count("toast"))
	})
}

func TestWebhookResults(t *testing.T) {
	t.Run("Success raises a success result toast", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		bc := &recordingBroadcaster{}
		n := New(bc, nil, NewWebhookService(srv.URL))

		settings := toastOnly()
		settings.ShowToast = false
		settings.WebhookEnabled = true
		n.HandleTrigger(testEvent("a1"), settings)

		require.Eventually(t, func() bool { return bc.count("result_toast") == 1 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, "success", lastResultKind(bc))
		n.Destroy()
	})

	t.Run("Failure raises a failure result toast", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}))
		defer srv.Close()

		bc := &recordingBroadcaster{}
		n := New(bc, nil, NewWebhookService(srv.URL))

		settings := toastOnly()
		settings.ShowToast = false
		settings.WebhookEnabled = true
		n.HandleTrigger(testEvent("a1"), settings)

		require.Eventually(t, func() bool { return bc.count("result_toast") == 1 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, "error", lastResultKind(bc))
		n.Destroy()
	})

	t.Run("Result toast dismiss cancels its timer", func(t *testing.T) {
		bc := &recordingBroadcaster{}
		n := New(bc, nil, nil)
		defer n.Destroy()

		n.showResult("success", "done")
		_, results := n.timerCount()
		require.Equal(t, 1, results)

		n.DismissResult("result-1")
		_, results = n.timerCount()
		assert.Zero(t, results)
	})
}

func lastResultKind(bc *recordingBroadcaster) string {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	for i := len(bc.events) - 1; i >= 0; i-- {
		if bc.events[i].event == "result_toast" {
			kind, _ := bc.events[i].data["kind"].(string)
			return kind
		}
	}
	return ""
}

func TestDestroy(t *testing.T) {
	t.Run("Destroy releases every timer and handle", func(t *testing.T) {
		bc := &recordingBroadcaster{}
		player := sound.NewPlayer(sound.NewManager(), bc)
		n := New(bc, player, nil)

		n.HandleTrigger(testEvent("a1"), models.DefaultNotificationSettings())
		n.HandleTrigger(testEvent("a2"), models.DefaultNotificationSettings())
		n.showResult("success", "one")
		n.showResult("error", "two")

		n.Destroy()

		toasts, results := n.timerCount()
		assert.Zero(t, toasts)
		assert.Zero(t, results)
		assert.Zero(t, player.Active())
	})

	t.Run("Destroy is idempotent and blocks later triggers", func(t *testing.T) {
		bc := &recordingBroadcaster{}
		n := New(bc, nil, nil)

		n.Destroy()
		n.Destroy()
		n.HandleTrigger(testEvent("a1"), toastOnly())

		assert.Zero(t, bc.count("toast"))
	})
}
