package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/internal/patterns"
)

func TestFoldProfile(t *testing.T) {
	p := foldProfile(patterns.Default(), []string{
		"I need a truck that can tow",
		"something under $50k",
		"trading in my 2019 Ford Escape",
	})

	assert.Equal(t, model.BodyTypeTruck, p.VehicleInterest.BodyType)
	assert.Contains(t, p.VehicleInterest.Features, "towing")
	require.NotNil(t, p.Budget.Max)
	assert.Equal(t, 50000.0, *p.Budget.Max)
	require.NotNil(t, p.TradeIn.Vehicle)
	assert.Equal(t, "Escape", p.TradeIn.Vehicle.Model)
}

func TestFoldProfile_Empty(t *testing.T) {
	assert.True(t, foldProfile(patterns.Default(), nil).IsEmpty())
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("first\n\n   \n  second  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, lines)
}
