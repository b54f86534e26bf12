package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypt0inf0/openalgo-chart/internal/models"
)

func TestTrendLine(t *testing.T) {
	t.Run("Interpolates between anchors", func(t *testing.T) {
		line := NewTrendLine("l1", Point{Time: 0, Price: 100}, Point{Time: 1000, Price: 200})
		v, ok := line.ScalarValue(500)
		require.True(t, ok)
		assert.Equal(t, 150.0, v)
	})

	t.Run("Extrapolates past the anchors", func(t *testing.T) {
		line := NewTrendLine("l1", Point{Time: 0, Price: 100}, Point{Time: 1000, Price: 200})
		v, ok := line.ScalarValue(2000)
		require.True(t, ok)
		assert.Equal(t, 300.0, v)
	})

	t.Run("Vertical anchor pair has no value", func(t *testing.T) {
		line := NewTrendLine("l1", Point{Time: 500, Price: 100}, Point{Time: 500, Price: 200})
		_, ok := line.ScalarValue(500)
		assert.False(t, ok)
	})
}

func TestZone(t *testing.T) {
	t.Run("Price band", func(t *testing.T) {
		z := Zone{PriceTop: 110, PriceBottom: 90}
		assert.True(t, z.Contains(100, 0))
		assert.True(t, z.Contains(90, 0))
		assert.True(t, z.Contains(110, 0))
		assert.False(t, z.Contains(89.9, 0))
		assert.False(t, z.Contains(110.1, 0))
	})

	t.Run("Time bounds", func(t *testing.T) {
		z := Zone{PriceTop: 110, PriceBottom: 90, TimeFrom: 100, TimeTo: 200}
		assert.True(t, z.Contains(100, 150))
		assert.False(t, z.Contains(100, 50))
		assert.False(t, z.Contains(100, 250))
	})
}

func TestRegistry(t *testing.T) {
	t.Run("Lookup by id", func(t *testing.T) {
		r := NewRegistry()
		r.Register(NewShape("s1", Zone{PriceTop: 110, PriceBottom: 90}))

		tool, ok := r.Get("s1")
		require.True(t, ok)
		assert.Equal(t, models.ToolShape, tool.Type())
	})

	t.Run("Removal leaves no dangling reference", func(t *testing.T) {
		r := NewRegistry()
		r.Register(NewVerticalMarker("v1", 12345))
		r.Remove("v1")

		_, ok := r.Get("v1")
		assert.False(t, ok)
	})

	t.Run("Register replaces an existing tool", func(t *testing.T) {
		r := NewRegistry()
		r.Register(NewShape("s1", Zone{PriceTop: 110, PriceBottom: 90}))
		r.Register(NewShape("s1", Zone{PriceTop: 220, PriceBottom: 180}))

		tool, _ := r.Get("s1")
		zone, ok := tool.Region()
		require.True(t, ok)
		assert.Equal(t, 220.0, zone.PriceTop)
	})
}
