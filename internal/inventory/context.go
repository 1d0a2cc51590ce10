package inventory

import (
	"encoding/json"

	"github.com/sells-group/showroom-assistant/internal/model"
)

// contextVehicle is the compact form sent to the chat backend.
type contextVehicle struct {
	Stock     string  `json:"stock,omitempty"`
	Year      int     `json:"year,omitempty"`
	Make      string  `json:"make"`
	Model     string  `json:"model"`
	Trim      string  `json:"trim,omitempty"`
	Color     string  `json:"color,omitempty"`
	Body      string  `json:"body,omitempty"`
	Condition string  `json:"condition,omitempty"`
	Price     float64 `json:"price,omitempty"`
}

// Context serializes up to limit vehicles as a JSON array for the chat
// request. A limit of zero or less includes every vehicle.
func Context(vehicles []model.Vehicle, limit int) string {
	if limit > 0 && len(vehicles) > limit {
		vehicles = vehicles[:limit]
	}
	out := make([]contextVehicle, len(vehicles))
	for i, v := range vehicles {
		out[i] = contextVehicle{
			Stock:     v.StockNumber,
			Year:      v.Year,
			Make:      v.Make,
			Model:     v.Model,
			Trim:      v.Trim,
			Color:     v.Color,
			Body:      v.BodyStyle,
			Condition: v.Condition,
			Price:     v.Price,
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "[]"
	}
	return string(data)
}
