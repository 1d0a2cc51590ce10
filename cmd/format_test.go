package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/internal/store"
)

func TestFormatVehicles(t *testing.T) {
	var buf bytes.Buffer
	formatVehicles(&buf, []model.Vehicle{
		{StockNumber: "T1", Year: 2024, Make: "Chevrolet", Model: "Silverado 1500", Trim: "LT", BodyStyle: "Pickup", Color: "Summit White", Price: 48500},
		{StockNumber: "C1", Make: "Chevrolet", Model: "Malibu"},
	})

	out := buf.String()
	assert.Contains(t, out, "STOCK")
	assert.Contains(t, out, "2024 Chevrolet Silverado 1500 LT")
	assert.Contains(t, out, "$48,500")
	assert.Contains(t, out, "Summit White")
	assert.Contains(t, out, "Chevrolet Malibu")
	assert.Contains(t, out, "-")
}

func TestFormatSessionsList(t *testing.T) {
	now := time.Now()
	var buf bytes.Buffer
	formatSessionsList(&buf, []store.SessionSummary{
		{SessionID: "abcdef12-3456-7890", CustomerName: "Dana", CurrentStep: "test_drive", Messages: 6, CreatedAt: now, UpdatedAt: now},
		{SessionID: "short", Messages: 0, CreatedAt: now, UpdatedAt: now},
	})

	out := buf.String()
	assert.Contains(t, out, "abcdef12")
	assert.NotContains(t, out, "abcdef12-3456")
	assert.Contains(t, out, "Dana")
	assert.Contains(t, out, "test_drive")
	assert.Contains(t, out, "short")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abcdef12", truncateID("abcdef12-3456"))
	assert.Equal(t, "abc", truncateID("abc"))
	assert.Equal(t, "", truncateID(""))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$62,000", money(62000))
	assert.Equal(t, "-", money(0))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, writeJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}
