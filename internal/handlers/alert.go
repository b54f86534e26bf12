package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crypt0inf0/openalgo-chart/internal/alerts"
	"github.com/crypt0inf0/openalgo-chart/internal/engine"
	"github.com/crypt0inf0/openalgo-chart/internal/models"
	"github.com/crypt0inf0/openalgo-chart/internal/sound"
	"github.com/crypt0inf0/openalgo-chart/internal/storage"
)

// TickRequest is an inbound market observation driving the evaluator.
type TickRequest struct {
	Price float64  `json:"price" binding:"required"`
	Close *float64 `json:"close,omitempty"`
	Time  *int64   `json:"time,omitempty"`
}

// CreateAlertRequest creates a price or tool alert.
type CreateAlertRequest struct {
	Price     float64               `json:"price"`
	Condition models.AlertCondition `json:"condition,omitempty"`
	ToolID    string                `json:"toolId,omitempty"`
	ToolType  models.ToolType       `json:"toolType,omitempty"`
}

// AlertHandler wires the HTTP surface to the engine components.
type AlertHandler struct {
	store     *alerts.Store
	evaluator *engine.Evaluator
	sounds    *sound.Manager
	db        *storage.Store
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(store *alerts.Store, evaluator *engine.Evaluator, sounds *sound.Manager, db *storage.Store) *AlertHandler {
	return &AlertHandler{
		store:     store,
		evaluator: evaluator,
		sounds:    sounds,
		db:        db,
	}
}

// HandleTick evaluates all alerts against one observation.
func (h *AlertHandler) HandleTick(c *gin.Context) {
	var req TickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tick payload"})
		return
	}

	closePrice := req.Price
	if req.Close != nil {
		closePrice = *req.Close
	}
	ts := time.Now()
	if req.Time != nil {
		ts = time.UnixMilli(*req.Time)
	}

	h.evaluator.OnTick(req.Price, closePrice, ts)
	c.JSON(http.StatusOK, gin.H{"message": "Tick processed", "alerts": h.store.Count()})
}

// ListAlerts returns all alerts sorted by price descending.
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	list := h.store.Alerts()
	c.JSON(http.StatusOK, gin.H{"alerts": list, "total": len(list)})
}

// GetAlert returns a single alert by id.
func (h *AlertHandler) GetAlert(c *gin.Context) {
	alert, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	c.JSON(http.StatusOK, alert)
}

// CreateAlert adds a price alert, or a tool alert when a tool id is given.
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert payload"})
		return
	}

	condition := req.Condition
	if condition == "" {
		condition = models.ConditionCrossing
	}
	if !condition.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown condition"})
		return
	}
	if !conditionAllowed(condition, req.ToolType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Condition not permitted for tool type"})
		return
	}

	var id string
	if req.ToolID != "" {
		id = h.store.AddToolAlert(req.ToolID, req.ToolType, condition)
	} else {
		id = h.store.AddAlertWithCondition(req.Price, condition)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alert created", "alert_id": id})
}

// UpdateAlert applies an edit-surface save.
func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	var data models.AlertEditData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid edit payload"})
		return
	}

	id := c.Param("id")
	alert, ok := h.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	if !data.Condition.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown condition"})
		return
	}
	if !conditionAllowed(data.Condition, alert.ToolType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Condition not permitted for tool type"})
		return
	}

	h.store.UpdateAlert(id, data.Price, data.Condition, data.Notifications)
	c.JSON(http.StatusOK, gin.H{"message": "Alert updated", "alert_id": id})
}

// DeleteAlert removes an alert by id.
func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	if !h.store.RemoveAlert(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alert removed"})
}

// ClearAlerts removes every alert.
func (h *AlertHandler) ClearAlerts(c *gin.Context) {
	h.store.ClearAlerts()
	c.JSON(http.StatusOK, gin.H{"message": "Alerts cleared"})
}

// GetConditionOptions returns the conditions the edit surface may offer for
// an alert, restricted by its tool type.
func (h *AlertHandler) GetConditionOptions(c *gin.Context) {
	alert, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"alert_id":   alert.ID,
		"tool_type":  alert.ToolType,
		"conditions": models.ConditionsForTool(alert.ToolType),
	})
}

// GetEditData supplies the edit surface with the alert's current values in
// the same shape it sends back on save.
func (h *AlertHandler) GetEditData(c *gin.Context) {
	alert, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	c.JSON(http.StatusOK, models.AlertEditData{
		AlertID:       alert.ID,
		Price:         alert.Price,
		Condition:     alert.Condition,
		Symbol:        alert.Symbol,
		Exchange:      alert.Exchange,
		IsTrendline:   alert.ToolType == models.ToolTrendline,
		ToolType:      alert.ToolType,
		Notifications: alert.Notifications,
	})
}

// ExportAlerts returns the serializable projection of the store.
func (h *AlertHandler) ExportAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ExportAlerts())
}

// ImportAlerts restores alerts from a persisted JSON array. Malformed
// records are skipped individually, never failing the whole import.
func (h *AlertHandler) ImportAlerts(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	records := decodeRecords(body)
	if records == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload is not a JSON array"})
		return
	}

	imported := h.store.ImportAlerts(records)
	c.JSON(http.StatusOK, gin.H{"message": "Alerts imported", "imported": imported})
}

// decodeRecords parses records one by one so a single bad element cannot
// sink the batch. Returns nil only when the payload is not an array.
func decodeRecords(body []byte) []models.SerializableAlert {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}

	records := make([]models.SerializableAlert, 0, len(raw))
	for _, item := range raw {
		var rec models.SerializableAlert
		if err := json.Unmarshal(item, &rec); err != nil {
			log.Printf("Skipping undecodable alert record: %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// SaveAlerts persists the current export to the database.
func (h *AlertHandler) SaveAlerts(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence not configured"})
		return
	}
	records := h.store.ExportAlerts()
	if err := h.db.ReplaceAll(records); err != nil {
		log.Printf("Failed to save alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alerts saved", "saved": len(records)})
}

// LoadAlerts imports the persisted records into the store.
func (h *AlertHandler) LoadAlerts(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence not configured"})
		return
	}
	records, err := h.db.LoadAll()
	if err != nil {
		log.Printf("Failed to load alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load alerts"})
		return
	}
	imported := h.store.ImportAlerts(records)
	c.JSON(http.StatusOK, gin.H{"message": "Alerts loaded", "imported": imported})
}

// ServeSound serves the synthesized alarm tone.
func (h *AlertHandler) ServeSound(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, "audio/wav", h.sounds.Data())
}

func conditionAllowed(condition models.AlertCondition, tool models.ToolType) bool {
	for _, allowed := range models.ConditionsForTool(tool) {
		if condition == allowed {
			return true
		}
	}
	return false
}
