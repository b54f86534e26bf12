package models

import "time"

// TriggerEvent describes one confirmed condition match. It is handed from
// the evaluator to the dispatcher by value and never mutated.
type TriggerEvent struct {
	AlertID      string         `json:"alertId"`
	Symbol       string         `json:"symbol"`
	Exchange     string         `json:"exchange"`
	Direction    string         `json:"direction"`
	Price        string         `json:"price"`
	NumericPrice float64        `json:"numericPrice"`
	ClosePrice   float64        `json:"closePrice"`
	Timestamp    time.Time      `json:"timestamp"`
	Condition    AlertCondition `json:"condition"`
}
