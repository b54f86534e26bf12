package models

import "time"

// AlertCondition identifies the predicate attached to an alert.
type AlertCondition string

const (
	ConditionCrossing     AlertCondition = "crossing"
	ConditionCrossingUp   AlertCondition = "crossing_up"
	ConditionCrossingDown AlertCondition = "crossing_down"
	ConditionEntering     AlertCondition = "entering"
	ConditionExiting      AlertCondition = "exiting"
	ConditionInside       AlertCondition = "inside"
	ConditionOutside      AlertCondition = "outside"
)

// IsScalar reports whether the condition compares against a single
// threshold value (price level, trendline or vertical marker).
func (c AlertCondition) IsScalar() bool {
	switch c {
	case ConditionCrossing, ConditionCrossingUp, ConditionCrossingDown:
		return true
	}
	return false
}

// IsRegion reports whether the condition tests a zone drawn on the chart.
func (c AlertCondition) IsRegion() bool {
	switch c {
	case ConditionEntering, ConditionExiting, ConditionInside, ConditionOutside:
		return true
	}
	return false
}

// Valid reports whether the condition is a member of the closed enum.
func (c AlertCondition) Valid() bool {
	return c.IsScalar() || c.IsRegion()
}

// ToolType identifies the kind of drawing a tool alert is bound to.
// Empty means the alert is a plain price level.
type ToolType string

const (
	ToolNone      ToolType = ""
	ToolTrendline ToolType = "trendline"
	ToolVertical  ToolType = "vertical"
	ToolShape     ToolType = "shape"
)

// ConditionsForTool returns the conditions the edit surface may offer for
// the given tool type. Vertical markers only cross, shapes only take the
// region conditions, everything else takes the scalar three.
func ConditionsForTool(tool ToolType) []AlertCondition {
	switch tool {
	case ToolVertical:
		return []AlertCondition{ConditionCrossing}
	case ToolShape:
		return []AlertCondition{ConditionEntering, ConditionExiting, ConditionInside, ConditionOutside}
	default:
		return []AlertCondition{ConditionCrossing, ConditionCrossingUp, ConditionCrossingDown}
	}
}

// PricePosition is the market's side of a scalar threshold.
type PricePosition string

const (
	PositionAbove   PricePosition = "above"
	PositionBelow   PricePosition = "below"
	PositionUnknown PricePosition = "unknown"
)

// AlertKind distinguishes plain price alerts from alerts bound to drawn geometry.
type AlertKind string

const (
	KindPrice AlertKind = "price"
	KindTool  AlertKind = "tool"
)

// WebhookMode selects the outbound payload shape.
type WebhookMode string

const (
	WebhookOpenAlgo WebhookMode = "openalgo"
	WebhookCustom   WebhookMode = "custom"
)

// DefaultMessageTemplate is the custom-mode message used when none is configured.
const DefaultMessageTemplate = "{{symbol}} {{condition}} {{price}}"

// NotificationSettings controls which channels fire when an alert triggers.
type NotificationSettings struct {
	ShowToast      bool        `json:"showToast"`
	PlaySound      bool        `json:"playSound"`
	WebhookEnabled bool        `json:"webhookEnabled"`
	WebhookMode    WebhookMode `json:"webhookMode"`
	WebhookURL     string      `json:"webhookUrl,omitempty"`
	Message        string      `json:"message,omitempty"`
	// Broker order fields, used only in openalgo mode.
	Action    string `json:"action,omitempty"`
	Product   string `json:"product,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
	PriceType string `json:"priceType,omitempty"`
}

// DefaultNotificationSettings returns the engine defaults: toast and sound
// on, webhook off in openalgo mode.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		ShowToast:      true,
		PlaySound:      true,
		WebhookEnabled: false,
		WebhookMode:    WebhookOpenAlgo,
		Message:        DefaultMessageTemplate,
		Action:         "BUY",
		Product:        "MIS",
		Quantity:       1,
		PriceType:      "MARKET",
	}
}

// Alert is an in-memory alert record. The store is the sole owner; other
// components hold only the id and snapshots passed at trigger time.
type Alert struct {
	ID                   string                `json:"id"`
	Price                float64               `json:"price"`
	Condition            AlertCondition        `json:"condition"`
	Kind                 AlertKind             `json:"kind"`
	ToolID               string                `json:"toolId,omitempty"`
	ToolType             ToolType              `json:"toolType,omitempty"`
	InitialPricePosition PricePosition         `json:"initialPricePosition"`
	Notifications        *NotificationSettings `json:"notifications,omitempty"`
	Symbol               string                `json:"symbol,omitempty"`
	Exchange             string                `json:"exchange,omitempty"`
	CreatedAt            time.Time             `json:"createdAt"`
}

// Settings returns the alert's notification settings, falling back to the
// engine defaults when none were configured.
func (a *Alert) Settings() NotificationSettings {
	if a.Notifications != nil {
		return *a.Notifications
	}
	return DefaultNotificationSettings()
}

// SerializableAlert is the durable projection of an Alert. Tool alerts are
// never exported because their geometry handle cannot be serialized.
type SerializableAlert struct {
	ID            string                `json:"id"`
	Price         float64               `json:"price"`
	Condition     AlertCondition        `json:"condition"`
	Type          string                `json:"type"`
	CreatedAt     int64                 `json:"createdAt"`
	Notifications *NotificationSettings `json:"notifications,omitempty"`
	Symbol        string                `json:"symbol,omitempty"`
	Exchange      string                `json:"exchange,omitempty"`
	Triggered     bool                  `json:"triggered,omitempty"`
}

// AlertEditData is the payload the edit surface produces on save and
// consumes when opening an editor.
type AlertEditData struct {
	AlertID       string                `json:"alertId"`
	Price         float64               `json:"price"`
	Condition     AlertCondition        `json:"condition"`
	Symbol        string                `json:"symbol"`
	Exchange      string                `json:"exchange,omitempty"`
	IsTrendline   bool                  `json:"isTrendline,omitempty"`
	ToolType      ToolType              `json:"toolType,omitempty"`
	Notifications *NotificationSettings `json:"notifications,omitempty"`
}
