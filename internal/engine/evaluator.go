package engine

import (
	"strconv"
	"sync"
	"time"

	"github.com/crypt0inf0/openalgo-chart/internal/alerts"
	"github.com/crypt0inf0/openalgo-chart/internal/geometry"
	"github.com/crypt0inf0/openalgo-chart/internal/metrics"
	"github.com/crypt0inf0/openalgo-chart/internal/models"
)

// Sink receives trigger events. The evaluator never calls dispatcher
// internals; the two communicate only through this value.
type Sink func(models.TriggerEvent)

// alertState is the evaluator's per-alert runtime state. It is rebuilt from
// scratch on the first observation after creation, import or edit.
type alertState struct {
	seen         bool
	lastPosition models.PricePosition
	inside       bool
}

// Evaluator runs the per-tick predicate check for every alert in the store.
// Work per tick is O(active alerts), no I/O.
type Evaluator struct {
	mu     sync.Mutex
	store  *alerts.Store
	tools  *geometry.Registry
	sink   Sink
	states map[string]*alertState
}

// New creates an evaluator over the given store and tool registry. It
// subscribes to store mutations to keep its runtime state in step.
func New(store *alerts.Store, tools *geometry.Registry, sink Sink) *Evaluator {
	e := &Evaluator{
		store:  store,
		tools:  tools,
		sink:   sink,
		states: make(map[string]*alertState),
	}
	store.Subscribe(e, e.onStoreEvent)
	return e
}

// Close detaches the evaluator from the store.
func (e *Evaluator) Close() {
	e.store.Unsubscribe(e)
}

// onStoreEvent drops runtime state for removed alerts and resets it for
// edited ones, so an edit re-captures position without a false trigger.
func (e *Evaluator) onStoreEvent(ev alerts.Event) {
	switch ev.Type {
	case alerts.EventRemoved, alerts.EventUpdated:
		e.mu.Lock()
		delete(e.states, ev.Alert.ID)
		e.mu.Unlock()
	}
}

// OnTick evaluates every alert against a new market observation. Calls are
// serialized, so trigger events per alert leave in tick order.
func (e *Evaluator) OnTick(price, closePrice float64, ts time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, alert := range e.store.Alerts() {
		e.evaluate(alert, price, closePrice, ts)
	}
}

func (e *Evaluator) evaluate(alert models.Alert, price, closePrice float64, ts time.Time) {
	if alert.Condition.IsRegion() {
		e.evaluateRegion(alert, price, closePrice, ts)
		return
	}
	e.evaluateScalar(alert, price, closePrice, ts)
}

// resolveScalar returns the observation and threshold for a scalar alert.
// Vertical markers live on the time axis, so the observation there is the
// tick clock rather than the price.
func (e *Evaluator) resolveScalar(alert models.Alert, price float64, ts time.Time) (observed, threshold float64, ok bool) {
	if alert.Kind == models.KindPrice {
		return price, alert.Price, true
	}
	tool, found := e.tools.Get(alert.ToolID)
	if !found {
		// Drawing was deleted; skip this tick, not an error.
		return 0, 0, false
	}
	value, hasValue := tool.ScalarValue(ts.UnixMilli())
	if !hasValue {
		return 0, 0, false
	}
	if tool.Type() == models.ToolVertical {
		return float64(ts.UnixMilli()), value, true
	}
	return price, value, true
}

func (e *Evaluator) evaluateScalar(alert models.Alert, price, closePrice float64, ts time.Time) {
	observed, threshold, ok := e.resolveScalar(alert, price, ts)
	if !ok {
		return
	}

	position := models.PositionBelow
	if observed > threshold {
		position = models.PositionAbove
	}

	state := e.state(alert.ID)
	if !state.seen {
		// First evaluation after creation: capture the side, never
		// trigger. The market may already be past the line.
		state.seen = true
		state.lastPosition = position
		e.store.SetInitialPricePosition(alert.ID, position)
		return
	}
	if position == state.lastPosition {
		return
	}

	direction := "down"
	if position == models.PositionAbove {
		direction = "up"
	}
	state.lastPosition = position

	switch alert.Condition {
	case models.ConditionCrossingUp:
		if direction != "up" {
			return
		}
	case models.ConditionCrossingDown:
		if direction != "down" {
			return
		}
	}

	// A genuine crossing permanently lifts the creation suppression.
	e.store.SetInitialPricePosition(alert.ID, models.PositionUnknown)
	e.emit(alert, direction, threshold, closePrice, ts)
}

func (e *Evaluator) evaluateRegion(alert models.Alert, price, closePrice float64, ts time.Time) {
	tool, found := e.tools.Get(alert.ToolID)
	if !found {
		return
	}
	zone, hasZone := tool.Region()
	if !hasZone {
		return
	}
	inside := zone.Contains(price, ts.UnixMilli())

	state := e.state(alert.ID)
	wasInside := state.inside
	first := !state.seen
	state.seen = true
	state.inside = inside

	switch alert.Condition {
	case models.ConditionInside:
		if inside {
			e.emit(alert, "inside", price, closePrice, ts)
		}
	case models.ConditionOutside:
		if !inside {
			e.emit(alert, "outside", price, closePrice, ts)
		}
	case models.ConditionEntering:
		if !first && inside && !wasInside {
			e.emit(alert, "enter", price, closePrice, ts)
		}
	case models.ConditionExiting:
		if !first && !inside && wasInside {
			e.emit(alert, "exit", price, closePrice, ts)
		}
	}
}

func (e *Evaluator) state(id string) *alertState {
	st, ok := e.states[id]
	if !ok {
		st = &alertState{}
		e.states[id] = st
	}
	return st
}

func (e *Evaluator) emit(alert models.Alert, direction string, numericPrice, closePrice float64, ts time.Time) {
	metrics.TriggersTotal.WithLabelValues(string(alert.Condition)).Inc()
	if e.sink == nil {
		return
	}
	e.sink(models.TriggerEvent{
		AlertID:      alert.ID,
		Symbol:       alert.Symbol,
		Exchange:     alert.Exchange,
		Direction:    direction,
		Price:        strconv.FormatFloat(numericPrice, 'f', -1, 64),
		NumericPrice: numericPrice,
		ClosePrice:   closePrice,
		Timestamp:    ts,
		Condition:    alert.Condition,
	})
}
