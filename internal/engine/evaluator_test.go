package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypt0inf0/openalgo-chart/internal/alerts"
	"github.com/crypt0inf0/openalgo-chart/internal/geometry"
	"github.com/crypt0inf0/openalgo-chart/internal/models"
)

type harness struct {
	store     *alerts.Store
	tools     *geometry.Registry
	evaluator *Evaluator
	triggers  []models.TriggerEvent
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: alerts.NewStore("BTCUSDT", "BINANCE"),
		tools: geometry.NewRegistry(),
	}
	h.evaluator = New(h.store, h.tools, func(evt models.TriggerEvent) {
		h.triggers = append(h.triggers, evt)
	})
	t.Cleanup(h.evaluator.Close)
	return h
}

func (h *harness) tick(price float64) {
	h.evaluator.OnTick(price, price, time.Now())
}

func TestScalarCrossing(t *testing.T) {
	t.Run("No trigger on creation tick even past the line", func(t *testing.T) {
		h := newHarness(t)
		id := h.store.AddAlertWithCondition(100, models.ConditionCrossingUp)

		// Market is already above the threshold when the alert appears.
		h.tick(110)
		assert.Empty(t, h.triggers)

		alert, _ := h.store.Get(id)
		assert.Equal(t, models.PositionAbove, alert.InitialPricePosition)
	})

	t.Run("Crossing fires on any transition", func(t *testing.T) {
		h := newHarness(t)
		h.store.AddAlert(100)

		h.tick(95)
		h.tick(105)
		require.Len(t, h.triggers, 1)
		assert.Equal(t, "up", h.triggers[0].Direction)
		assert.Equal(t, 100.0, h.triggers[0].NumericPrice)

		h.tick(95)
		require.Len(t, h.triggers, 2)
		assert.Equal(t, "down", h.triggers[1].Direction)
	})

	t.Run("Crossing up ignores downward transitions", func(t *testing.T) {
		h := newHarness(t)
		h.store.AddAlertWithCondition(100, models.ConditionCrossingUp)

		h.tick(105)
		h.tick(95)
		assert.Empty(t, h.triggers)

		h.tick(105)
		require.Len(t, h.triggers, 1)
		assert.Equal(t, "up", h.triggers[0].Direction)
	})

	t.Run("Crossing down ignores upward transitions", func(t *testing.T) {
		h := newHarness(t)
		h.store.AddAlertWithCondition(100, models.ConditionCrossingDown)

		h.tick(95)
		h.tick(105)
		assert.Empty(t, h.triggers)

		h.tick(95)
		require.Len(t, h.triggers, 1)
		assert.Equal(t, "down", h.triggers[0].Direction)
	})

	t.Run("Genuine trigger forces position unknown and re-arms", func(t *testing.T) {
		h := newHarness(t)
		id := h.store.AddAlert(100)

		h.tick(95)
		h.tick(105)
		h.tick(95)
		assert.Len(t, h.triggers, 2)

		alert, _ := h.store.Get(id)
		assert.Equal(t, models.PositionUnknown, alert.InitialPricePosition)
	})

	t.Run("Editing an alert re-captures position without a trigger", func(t *testing.T) {
		h := newHarness(t)
		id := h.store.AddAlert(100)

		h.tick(95)
		h.store.UpdateAlert(id, 90, models.ConditionCrossing, nil)

		// First tick after the edit only re-captures the side.
		h.tick(95)
		assert.Empty(t, h.triggers)

		h.tick(85)
		assert.Len(t, h.triggers, 1)
	})
}

func TestToolAlerts(t *testing.T) {
	t.Run("Trendline threshold follows the line", func(t *testing.T) {
		h := newHarness(t)
		// Flat line at 100.
		h.tools.Register(geometry.NewTrendLine("line-1",
			geometry.Point{Time: 0, Price: 100},
			geometry.Point{Time: 1000, Price: 100},
		))
		h.store.AddToolAlert("line-1", models.ToolTrendline, models.ConditionCrossing)

		h.tick(95)
		h.tick(105)
		require.Len(t, h.triggers, 1)
		assert.Equal(t, 100.0, h.triggers[0].NumericPrice)
	})

	t.Run("Deleted tool skips evaluation without error", func(t *testing.T) {
		h := newHarness(t)
		h.tools.Register(geometry.NewTrendLine("line-1",
			geometry.Point{Time: 0, Price: 100},
			geometry.Point{Time: 1000, Price: 100},
		))
		h.store.AddToolAlert("line-1", models.ToolTrendline, models.ConditionCrossing)

		h.tick(95)
		h.tools.Remove("line-1")
		h.tick(105)
		assert.Empty(t, h.triggers)
	})

	t.Run("Vertical marker crosses on the time axis", func(t *testing.T) {
		h := newHarness(t)
		marker := time.Now().Add(time.Minute)
		h.tools.Register(geometry.NewVerticalMarker("v-1", marker.UnixMilli()))
		h.store.AddToolAlert("v-1", models.ToolVertical, models.ConditionCrossing)

		h.evaluator.OnTick(100, 100, marker.Add(-30*time.Second))
		assert.Empty(t, h.triggers)

		h.evaluator.OnTick(100, 100, marker.Add(30*time.Second))
		require.Len(t, h.triggers, 1)
		assert.Equal(t, "up", h.triggers[0].Direction)
	})
}

func TestRegionConditions(t *testing.T) {
	zone := geometry.Zone{PriceTop: 110, PriceBottom: 90}

	register := func(h *harness, condition models.AlertCondition) {
		h.tools.Register(geometry.NewShape("zone-1", zone))
		h.store.AddToolAlert("zone-1", models.ToolShape, condition)
	}

	t.Run("Entering triggers once on the boundary tick", func(t *testing.T) {
		h := newHarness(t)
		register(h, models.ConditionEntering)

		h.tick(80)
		h.tick(100)
		h.tick(100)
		require.Len(t, h.triggers, 1)
		assert.Equal(t, "enter", h.triggers[0].Direction)
	})

	t.Run("Inside triggers on every matching tick", func(t *testing.T) {
		h := newHarness(t)
		register(h, models.ConditionInside)

		h.tick(80)
		h.tick(100)
		h.tick(100)
		assert.Len(t, h.triggers, 2)
	})

	t.Run("Exiting triggers only on the inside to outside transition", func(t *testing.T) {
		h := newHarness(t)
		register(h, models.ConditionExiting)

		h.tick(100)
		h.tick(80)
		h.tick(80)
		require.Len(t, h.triggers, 1)
		assert.Equal(t, "exit", h.triggers[0].Direction)
	})

	t.Run("Outside triggers level sensitively", func(t *testing.T) {
		h := newHarness(t)
		register(h, models.ConditionOutside)

		h.tick(80)
		h.tick(100)
		h.tick(120)
		assert.Len(t, h.triggers, 2)
	})

	t.Run("Entering does not fire on the first observation inside", func(t *testing.T) {
		h := newHarness(t)
		register(h, models.ConditionEntering)

		h.tick(100)
		assert.Empty(t, h.triggers)
	})
}

func TestRemovalDropsState(t *testing.T) {
	h := newHarness(t)
	id := h.store.AddAlert(100)

	h.tick(95)
	h.store.RemoveAlert(id)
	h.tick(105)
	assert.Empty(t, h.triggers)
}

func TestTriggerEventShape(t *testing.T) {
	h := newHarness(t)
	h.store.AddAlert(100)

	h.evaluator.OnTick(95, 95, time.Now())
	h.evaluator.OnTick(105, 104.5, time.Now())

	require.Len(t, h.triggers, 1)
	evt := h.triggers[0]
	assert.Equal(t, "BTCUSDT", evt.Symbol)
	assert.Equal(t, "BINANCE", evt.Exchange)
	assert.Equal(t, models.ConditionCrossing, evt.Condition)
	assert.Equal(t, "100", evt.Price)
	assert.Equal(t, 104.5, evt.ClosePrice)
	assert.False(t, evt.Timestamp.IsZero())
}
