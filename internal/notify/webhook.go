package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/crypt0inf0/openalgo-chart/internal/models"
)

// OpenAlgoOrder is the order-intent payload sent in openalgo mode.
type OpenAlgoOrder struct {
	Symbol       string `json:"symbol"`
	Exchange     string `json:"exchange"`
	Action       string `json:"action"`
	Product      string `json:"product"`
	Quantity     int    `json:"quantity"`
	PriceType    string `json:"pricetype"`
	TriggerPrice string `json:"trigger_price"`
}

// WebhookService delivers trigger events to outbound webhooks. Delivery is
// a single best-effort attempt, no retry.
type WebhookService struct {
	client     *resty.Client
	defaultURL string
}

// NewWebhookService creates a webhook service. defaultURL is used when an
// alert's settings carry no URL of their own.
func NewWebhookService(defaultURL string) *WebhookService {
	return &WebhookService{
		client:     resty.New().SetTimeout(10 * time.Second),
		defaultURL: defaultURL,
	}
}

// Deliver posts the trigger event according to the settings' webhook mode.
// A non-2xx response counts as failure.
func (s *WebhookService) Deliver(evt models.TriggerEvent, settings models.NotificationSettings) error {
	url := settings.WebhookURL
	if url == "" {
		url = s.defaultURL
	}
	if url == "" {
		return fmt.Errorf("no webhook URL configured")
	}

	var resp *resty.Response
	var err error

	switch settings.WebhookMode {
	case models.WebhookCustom:
		message := settings.Message
		if message == "" {
			message = models.DefaultMessageTemplate
		}
		resp, err = s.client.R().
			SetHeader("Content-Type", "text/plain").
			SetBody(RenderMessage(message, evt)).
			Post(url)
	default:
		order := OpenAlgoOrder{
			Symbol:       evt.Symbol,
			Exchange:     evt.Exchange,
			Action:       settings.Action,
			Product:      settings.Product,
			Quantity:     settings.Quantity,
			PriceType:    settings.PriceType,
			TriggerPrice: evt.Price,
		}
		resp, err = s.client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(order).
			Post(url)
	}

	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// RenderMessage substitutes the trigger event's fields into a message
// template. Placeholders are literal tokens, not template syntax.
func RenderMessage(template string, evt models.TriggerEvent) string {
	replacer := strings.NewReplacer(
		"{{symbol}}", evt.Symbol,
		"{{exchange}}", evt.Exchange,
		"{{price}}", evt.Price,
		"{{direction}}", evt.Direction,
		"{{condition}}", string(evt.Condition),
		"{{time}}", evt.Timestamp.Format(time.RFC3339),
		"{{close}}", strconv.FormatFloat(evt.ClosePrice, 'f', -1, 64),
	)
	return replacer.Replace(template)
}
