package geometry

import (
	"sync"

	"github.com/crypt0inf0/openalgo-chart/internal/models"
)

// Tool is a drawing owned by the chart. The alert engine only reads its
// current geometric value; lifecycle stays with the owner.
type Tool interface {
	ID() string
	Type() models.ToolType
	// ScalarValue resolves the threshold a scalar condition compares
	// against at the given time (unix ms). ok is false when the tool has
	// no scalar value.
	ScalarValue(ts int64) (float64, bool)
	// Region resolves the tool's zone. ok is false for non-zone tools.
	Region() (Zone, bool)
}

// Zone is a price band, optionally bounded in time. Zero time bounds mean
// unbounded.
type Zone struct {
	PriceTop    float64
	PriceBottom float64
	TimeFrom    int64
	TimeTo      int64
}

// Contains reports whether the observation falls inside the zone.
func (z Zone) Contains(price float64, ts int64) bool {
	if price < z.PriceBottom || price > z.PriceTop {
		return false
	}
	if z.TimeFrom != 0 && ts < z.TimeFrom {
		return false
	}
	if z.TimeTo != 0 && ts > z.TimeTo {
		return false
	}
	return true
}

// Point is a chart coordinate: unix ms on the time axis, price on the other.
type Point struct {
	Time  int64
	Price float64
}

// TrendLine is a line through two anchor points, extended in both directions.
type TrendLine struct {
	id   string
	a, b Point
}

// NewTrendLine creates a trendline through two anchors.
func NewTrendLine(id string, a, b Point) *TrendLine {
	return &TrendLine{id: id, a: a, b: b}
}

func (l *TrendLine) ID() string            { return l.id }
func (l *TrendLine) Type() models.ToolType { return models.ToolTrendline }

// ScalarValue interpolates the line's price at ts. A vertical pair of
// anchors has no single value there.
func (l *TrendLine) ScalarValue(ts int64) (float64, bool) {
	if l.a.Time == l.b.Time {
		return 0, false
	}
	slope := (l.b.Price - l.a.Price) / float64(l.b.Time-l.a.Time)
	return l.a.Price + slope*float64(ts-l.a.Time), true
}

func (l *TrendLine) Region() (Zone, bool) { return Zone{}, false }

// VerticalMarker is a vertical line at a fixed time. Its scalar value is on
// the time axis, so crossing it means the tick clock passing the marker.
type VerticalMarker struct {
	id   string
	time int64
}

// NewVerticalMarker creates a vertical marker at the given unix ms.
func NewVerticalMarker(id string, ts int64) *VerticalMarker {
	return &VerticalMarker{id: id, time: ts}
}

func (m *VerticalMarker) ID() string            { return m.id }
func (m *VerticalMarker) Type() models.ToolType { return models.ToolVertical }

func (m *VerticalMarker) ScalarValue(int64) (float64, bool) {
	return float64(m.time), true
}

func (m *VerticalMarker) Region() (Zone, bool) { return Zone{}, false }

// Shape is a rectangular zone on the chart.
type Shape struct {
	id   string
	zone Zone
}

// NewShape creates a shape covering the given zone.
func NewShape(id string, zone Zone) *Shape {
	return &Shape{id: id, zone: zone}
}

func (s *Shape) ID() string            { return s.id }
func (s *Shape) Type() models.ToolType { return models.ToolShape }

func (s *Shape) ScalarValue(int64) (float64, bool) { return 0, false }
func (s *Shape) Region() (Zone, bool)              { return s.zone, true }

// Registry is the externally owned table of drawings, looked up by id.
// Alerts hold ids, never tool references, so deleting a drawing can never
// leave a dangling pointer inside the engine.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.ID()] = tool
}

// Remove deletes a tool by id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, id)
}

// Get looks a tool up by id.
func (r *Registry) Get(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[id]
	return tool, ok
}
