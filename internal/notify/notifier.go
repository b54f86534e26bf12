package notify

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/crypt0inf0/openalgo-chart/internal/metrics"
	"github.com/crypt0inf0/openalgo-chart/internal/models"
	"github.com/crypt0inf0/openalgo-chart/internal/sound"
)

// autoDismissAfter is how long a toast stays up without user interaction.
const autoDismissAfter = 60 * time.Second

// Broadcaster pushes a typed event to connected chart clients.
type Broadcaster interface {
	Broadcast(event string, data any)
}

// Notifier fans a trigger event out to the toast, sound and webhook
// channels. Each channel fails independently; timers and playback handles
// are tracked per alert so Destroy can release everything.
type Notifier struct {
	mu           sync.Mutex
	bc           Broadcaster
	sounds       *sound.Player
	webhooks     *WebhookService
	toastTimers  map[string]*time.Timer
	resultTimers map[string]*time.Timer
	resultSeq    uint64
	destroyed    bool
}

// New creates a notifier. sounds and webhooks may be nil, disabling those
// channels.
func New(bc Broadcaster, sounds *sound.Player, webhooks *WebhookService) *Notifier {
	return &Notifier{
		bc:           bc,
		sounds:       sounds,
		webhooks:     webhooks,
		toastTimers:  make(map[string]*time.Timer),
		resultTimers: make(map[string]*time.Timer),
	}
}

// HandleTrigger turns one trigger event into channel side effects. Webhook
// delivery runs on its own goroutine so it never blocks evaluation.
func (n *Notifier) HandleTrigger(evt models.TriggerEvent, settings models.NotificationSettings) {
	n.mu.Lock()
	if n.destroyed {
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	if settings.ShowToast {
		n.showToast(evt, settings)
	}
	if settings.PlaySound && n.sounds != nil {
		if err := n.sounds.Play(evt.AlertID); err != nil {
			log.Printf("Failed to play alert sound for %s: %v", evt.AlertID, err)
		}
	}
	if settings.WebhookEnabled && n.webhooks != nil {
		go n.deliverWebhook(evt, settings)
	}
}

// showToast renders the alert toast, replacing any live toast for the same
// alert rather than stacking.
func (n *Notifier) showToast(evt models.TriggerEvent, settings models.NotificationSettings) {
	message := settings.Message
	if message == "" {
		message = models.DefaultMessageTemplate
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.destroyed {
		return
	}
	if t, ok := n.toastTimers[evt.AlertID]; ok {
		t.Stop()
		delete(n.toastTimers, evt.AlertID)
		n.broadcast("toast_dismiss", map[string]any{"alertId": evt.AlertID})
	}
	n.broadcast("toast", map[string]any{
		"alertId":   evt.AlertID,
		"message":   RenderMessage(message, evt),
		"price":     evt.Price,
		"direction": evt.Direction,
		"condition": string(evt.Condition),
	})
	id := evt.AlertID
	n.toastTimers[id] = time.AfterFunc(autoDismissAfter, func() {
		n.DismissToast(id)
	})
	metrics.ToastsShown.Inc()
}

// DismissToast removes the toast for an alert and cancels its pending
// auto-dismiss. Safe to call when no toast is live.
func (n *Notifier) DismissToast(alertID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	t, ok := n.toastTimers[alertID]
	if !ok {
		return
	}
	t.Stop()
	delete(n.toastTimers, alertID)
	n.broadcast("toast_dismiss", map[string]any{"alertId": alertID})
}

func (n *Notifier) deliverWebhook(evt models.TriggerEvent, settings models.NotificationSettings) {
	err := n.webhooks.Deliver(evt, settings)
	if err != nil {
		// Delivery failure never propagates; the alert is considered
		// triggered regardless of the outcome.
		metrics.WebhookDeliveries.WithLabelValues("failure").Inc()
		log.Printf("Webhook delivery failed for alert %s: %v", evt.AlertID, err)
		n.showResult("error", fmt.Sprintf("Webhook failed for %s: %v", evt.Symbol, err))
		return
	}
	metrics.WebhookDeliveries.WithLabelValues("success").Inc()
	n.showResult("success", fmt.Sprintf("Webhook delivered for %s", evt.Symbol))
}

// showResult raises a short-lived result toast, styled by kind and separate
// from the alert's main toast.
func (n *Notifier) showResult(kind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.destroyed {
		return
	}
	n.resultSeq++
	id := fmt.Sprintf("result-%d", n.resultSeq)
	n.broadcast("result_toast", map[string]any{
		"id":      id,
		"kind":    kind,
		"message": message,
	})
	n.resultTimers[id] = time.AfterFunc(autoDismissAfter, func() {
		n.DismissResult(id)
	})
}

// DismissResult removes a result toast and cancels its pending timer.
func (n *Notifier) DismissResult(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	t, ok := n.resultTimers[id]
	if !ok {
		return
	}
	t.Stop()
	delete(n.resultTimers, id)
	n.broadcast("result_toast_dismiss", map[string]any{"id": id})
}

// Destroy cancels every pending timer, releases every playback handle and
// removes all live notifications. Safe to call at any time, twice included;
// no timer fires afterwards.
func (n *Notifier) Destroy() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.destroyed {
		return
	}
	n.destroyed = true

	for id, t := range n.toastTimers {
		t.Stop()
		delete(n.toastTimers, id)
		n.broadcast("toast_dismiss", map[string]any{"alertId": id})
	}
	for id, t := range n.resultTimers {
		t.Stop()
		delete(n.resultTimers, id)
		n.broadcast("result_toast_dismiss", map[string]any{"id": id})
	}
	if n.sounds != nil {
		n.sounds.ReleaseAll()
	}
}

// broadcast pushes an event if a broadcaster is attached. Caller holds the
// lock.
func (n *Notifier) broadcast(event string, data any) {
	if n.bc != nil {
		n.bc.Broadcast(event, data)
	}
}
