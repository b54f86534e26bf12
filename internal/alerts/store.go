package alerts

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/crypt0inf0/openalgo-chart/internal/metrics"
	"github.com/crypt0inf0/openalgo-chart/internal/models"
)

// EventType identifies a store mutation event.
type EventType int

const (
	EventAdded EventType = iota
	EventRemoved
	EventUpdated
	// EventAlertsChanged is the aggregate event fired once per mutation
	// batch, after the individual events. Its Alert field is empty.
	EventAlertsChanged
)

// Event is delivered to store listeners on every mutation. Alert is a copy.
type Event struct {
	Type  EventType
	Alert models.Alert
}

type listener struct {
	owner any
	fn    func(Event)
}

// Store owns the set of alerts and their identity. It knows nothing about
// evaluation or notification; dependents subscribe to mutation events.
type Store struct {
	mu        sync.RWMutex
	alerts    map[string]*models.Alert
	listeners []listener
	symbol    string
	exchange  string
}

// NewStore creates an empty alert store carrying the chart's symbol and
// exchange context into every alert it creates.
func NewStore(symbol, exchange string) *Store {
	return &Store{
		alerts:   make(map[string]*models.Alert),
		symbol:   symbol,
		exchange: exchange,
	}
}

// Subscribe registers a mutation listener under an owner key.
func (s *Store) Subscribe(owner any, fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener{owner: owner, fn: fn})
}

// Unsubscribe removes every listener registered under the owner key.
func (s *Store) Unsubscribe(owner any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.listeners[:0]
	for _, l := range s.listeners {
		if l.owner != owner {
			kept = append(kept, l)
		}
	}
	s.listeners = kept
}

// notify delivers events to listeners outside the store lock so a listener
// may call back into the store.
func (s *Store) notify(events []Event) {
	s.mu.RLock()
	subs := make([]listener, len(s.listeners))
	copy(subs, s.listeners)
	s.mu.RUnlock()

	for _, ev := range events {
		for _, l := range subs {
			l.fn(ev)
		}
	}
}

const idBytes = 4

// newID draws random candidates until one is collision free. Caller holds
// the lock.
func (s *Store) newID() string {
	buf := make([]byte, idBytes)
	for {
		if _, err := rand.Read(buf); err != nil {
			log.Printf("Failed to read random bytes for alert id: %v", err)
		}
		id := hex.EncodeToString(buf)
		if _, exists := s.alerts[id]; !exists {
			return id
		}
	}
}

// AddAlert adds a price alert with the default crossing condition.
func (s *Store) AddAlert(price float64) string {
	return s.AddAlertWithCondition(price, models.ConditionCrossing)
}

// AddAlertWithCondition adds a price alert with an explicit condition and
// returns its id.
func (s *Store) AddAlertWithCondition(price float64, condition models.AlertCondition) string {
	s.mu.Lock()
	alert := &models.Alert{
		ID:                   s.newID(),
		Price:                price,
		Condition:            condition,
		Kind:                 models.KindPrice,
		InitialPricePosition: models.PositionUnknown,
		Symbol:               s.symbol,
		Exchange:             s.exchange,
		CreatedAt:            time.Now(),
	}
	s.alerts[alert.ID] = alert
	snapshot := *alert
	s.mu.Unlock()

	metrics.AlertsCreated.Inc()
	s.notify([]Event{{Type: EventAdded, Alert: snapshot}, {Type: EventAlertsChanged}})
	return alert.ID
}

// AddToolAlert adds an alert bound to externally drawn geometry. The store
// keeps only the tool id; the drawing itself stays with its owner.
func (s *Store) AddToolAlert(toolID string, toolType models.ToolType, condition models.AlertCondition) string {
	s.mu.Lock()
	alert := &models.Alert{
		ID:                   s.newID(),
		Condition:            condition,
		Kind:                 models.KindTool,
		ToolID:               toolID,
		ToolType:             toolType,
		InitialPricePosition: models.PositionUnknown,
		Symbol:               s.symbol,
		Exchange:             s.exchange,
		CreatedAt:            time.Now(),
	}
	s.alerts[alert.ID] = alert
	snapshot := *alert
	s.mu.Unlock()

	metrics.AlertsCreated.Inc()
	s.notify([]Event{{Type: EventAdded, Alert: snapshot}, {Type: EventAlertsChanged}})
	return alert.ID
}

// RemoveAlert removes an alert by id.
func (s *Store) RemoveAlert(id string) bool {
	s.mu.Lock()
	alert, ok := s.alerts[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	snapshot := *alert
	delete(s.alerts, id)
	s.mu.Unlock()

	metrics.AlertsRemoved.Inc()
	s.notify([]Event{{Type: EventRemoved, Alert: snapshot}, {Type: EventAlertsChanged}})
	return true
}

// UpdateAlertPrice moves an alert's threshold.
func (s *Store) UpdateAlertPrice(id string, price float64) bool {
	s.mu.Lock()
	alert, ok := s.alerts[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	alert.Price = price
	snapshot := *alert
	s.mu.Unlock()

	s.notify([]Event{{Type: EventUpdated, Alert: snapshot}, {Type: EventAlertsChanged}})
	return true
}

// UpdateAlert applies an edit-surface save: price, condition and, when
// present, the notification settings.
func (s *Store) UpdateAlert(id string, price float64, condition models.AlertCondition, notifications *models.NotificationSettings) bool {
	s.mu.Lock()
	alert, ok := s.alerts[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	alert.Price = price
	alert.Condition = condition
	if notifications != nil {
		n := *notifications
		alert.Notifications = &n
	}
	snapshot := *alert
	s.mu.Unlock()

	s.notify([]Event{{Type: EventUpdated, Alert: snapshot}, {Type: EventAlertsChanged}})
	return true
}

// Get returns a copy of the alert with the given id.
func (s *Store) Get(id string) (models.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.alerts[id]
	if !ok {
		return models.Alert{}, false
	}
	return *alert, true
}

// SetInitialPricePosition records the market side captured by the evaluator.
// Evaluator bookkeeping, no mutation event.
func (s *Store) SetInitialPricePosition(id string, pos models.PricePosition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if alert, ok := s.alerts[id]; ok {
		alert.InitialPricePosition = pos
	}
}

// Alerts returns copies of all alerts sorted by price descending.
func (s *Store) Alerts() []models.Alert {
	s.mu.RLock()
	out := make([]models.Alert, 0, len(s.alerts))
	for _, alert := range s.alerts {
		out = append(out, *alert)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	return out
}

// Count returns the number of alerts in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// ExportAlerts returns the durable projection of the store. Tool alerts are
// excluded because their geometry handle cannot be serialized.
func (s *Store) ExportAlerts() []models.SerializableAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SerializableAlert, 0, len(s.alerts))
	for _, alert := range s.alerts {
		if alert.Kind != models.KindPrice {
			continue
		}
		rec := models.SerializableAlert{
			ID:        alert.ID,
			Price:     alert.Price,
			Condition: alert.Condition,
			Type:      string(models.KindPrice),
			CreatedAt: alert.CreatedAt.UnixMilli(),
			Symbol:    alert.Symbol,
			Exchange:  alert.Exchange,
		}
		if alert.Notifications != nil {
			n := *alert.Notifications
			rec.Notifications = &n
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	return out
}

// ImportAlerts restores price alerts from persisted records. Records flagged
// triggered, malformed records and duplicate ids are skipped individually;
// the import never fails wholesale.
func (s *Store) ImportAlerts(records []models.SerializableAlert) int {
	var events []Event

	s.mu.Lock()
	imported := 0
	for _, rec := range records {
		if rec.Triggered {
			continue
		}
		if rec.ID == "" || math.IsNaN(rec.Price) || math.IsInf(rec.Price, 0) {
			log.Printf("Skipping malformed alert record %q", rec.ID)
			continue
		}
		if _, exists := s.alerts[rec.ID]; exists {
			log.Printf("Skipping alert record with duplicate id %q", rec.ID)
			continue
		}
		condition := rec.Condition
		if !condition.Valid() {
			condition = models.ConditionCrossing
		}
		alert := &models.Alert{
			ID:                   rec.ID,
			Price:                rec.Price,
			Condition:            condition,
			Kind:                 models.KindPrice,
			InitialPricePosition: models.PositionUnknown,
			Symbol:               rec.Symbol,
			Exchange:             rec.Exchange,
			CreatedAt:            time.UnixMilli(rec.CreatedAt),
		}
		if rec.Notifications != nil {
			n := *rec.Notifications
			alert.Notifications = &n
		}
		s.alerts[alert.ID] = alert
		events = append(events, Event{Type: EventAdded, Alert: *alert})
		imported++
	}
	s.mu.Unlock()

	if imported > 0 {
		events = append(events, Event{Type: EventAlertsChanged})
		s.notify(events)
	}
	return imported
}

// ClearAlerts removes every alert from the store.
func (s *Store) ClearAlerts() {
	s.mu.Lock()
	var events []Event
	for id, alert := range s.alerts {
		events = append(events, Event{Type: EventRemoved, Alert: *alert})
		delete(s.alerts, id)
	}
	s.mu.Unlock()

	if len(events) > 0 {
		metrics.AlertsRemoved.Add(float64(len(events)))
		events = append(events, Event{Type: EventAlertsChanged})
		s.notify(events)
	}
}
