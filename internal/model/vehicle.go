package model

import (
	"fmt"
	"strings"
)

// Vehicle is a single inventory record as seen by the assistant.
type Vehicle struct {
	StockNumber string  `json:"stock_number"`
	VIN         string  `json:"vin,omitempty"`
	Year        int     `json:"year,omitempty"`
	Make        string  `json:"make"`
	Model       string  `json:"model"`
	Trim        string  `json:"trim,omitempty"`
	Color       string  `json:"color,omitempty"`
	BodyStyle   string  `json:"body_style,omitempty"`
	Condition   string  `json:"condition,omitempty"` // new, used, cpo
	Price       float64 `json:"price,omitempty"`
}

// Title returns "2024 Chevrolet Silverado LT" style display text.
func (v Vehicle) Title() string {
	parts := make([]string, 0, 4)
	if v.Year > 0 {
		parts = append(parts, fmt.Sprintf("%d", v.Year))
	}
	for _, s := range []string{v.Make, v.Model, v.Trim} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// VehicleSummary is the selected-vehicle digest written to the session log.
type VehicleSummary struct {
	StockNumber string  `json:"stock_number"`
	Title       string  `json:"title"`
	Color       string  `json:"color,omitempty"`
	Price       float64 `json:"price,omitempty"`
}

// Summarize builds the session-log digest for v.
func (v Vehicle) Summarize() VehicleSummary {
	return VehicleSummary{
		StockNumber: v.StockNumber,
		Title:       v.Title(),
		Color:       v.Color,
		Price:       v.Price,
	}
}
