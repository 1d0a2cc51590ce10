package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/internal/patterns"
)

func TestExtract_BudgetCeiling(t *testing.T) {
	tests := []struct {
		input string
		max   float64
		min   float64
	}{
		{"something under $50k", 50000, 40000},
		{"something under $50,000", 50000, 40000},
		{"around $45k would be great", 45000, 36000},
		{"I can spend about 30 grand", 30000, 24000},
		{"no more than 35", 35000, 28000},
		{"my budget is $62,500", 62500, 50000},
		{"I can put 5k down, budget is $40,000", 40000, 32000},
		{"I'm putting money down. Budget is $40,000", 40000, 32000},
		{"no monthly payment please, under $40k", 40000, 32000},
		{"I have $2,000 saved and can spend about 30 grand", 30000, 24000},
	}
	e := New(nil)
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p := e.Extract(tt.input, model.Profile{})
			require.NotNil(t, p.Budget.Max)
			require.NotNil(t, p.Budget.Min)
			assert.Equal(t, tt.max, *p.Budget.Max)
			assert.Equal(t, tt.min, *p.Budget.Min)
		})
	}
}

func TestExtract_BudgetRange(t *testing.T) {
	e := New(nil)

	p := e.Extract("somewhere between $30,000 and $40,000", model.Profile{})
	require.NotNil(t, p.Budget.Min)
	assert.Equal(t, 30000.0, *p.Budget.Min)
	assert.Equal(t, 40000.0, *p.Budget.Max)

	p = e.Extract("30-40k", model.Profile{})
	require.NotNil(t, p.Budget.Max)
	assert.Equal(t, 30000.0, *p.Budget.Min)
	assert.Equal(t, 40000.0, *p.Budget.Max)
}

func TestExtract_BudgetIgnoresOtherNumbers(t *testing.T) {
	e := New(nil)
	tests := []string{
		"my monthly payment under $400",
		"I still owe about $12,000",
		"under 100,000 miles please",
		"anything from 2019 to 2021",
		"$400 a month",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			p := e.Extract(in, model.Profile{})
			assert.Nil(t, p.Budget.Max)
			assert.Nil(t, p.Budget.Min)
		})
	}
}

func TestExtract_SmallCountsAreNotBudgets(t *testing.T) {
	e := New(nil)
	for _, in := range []string{
		"my kids are 5 and 8 so we need room",
		"I need seating for up to 7 people",
		"room for 2 to 3 car seats",
		"something under 10 years old",
		"about 3 kids and a dog",
	} {
		t.Run(in, func(t *testing.T) {
			p := e.Extract(in, model.Profile{})
			assert.Nil(t, p.Budget.Max)
			assert.Nil(t, p.Budget.Min)
		})
	}
}

func TestExtract_StatedBudgetSurvivesLaterCounts(t *testing.T) {
	p := New(nil).Fold(model.Profile{}, "I want an SUV under $50k", "my kids are 5 and 8 so we need room")
	require.NotNil(t, p.Budget.Max)
	assert.Equal(t, 50000.0, *p.Budget.Max)
	assert.Equal(t, 40000.0, *p.Budget.Min)
}

func TestExtract_StopWordsStayInTheirClause(t *testing.T) {
	e := New(nil)

	p := e.Extract("I still owe about $12,000", model.Profile{})
	assert.Nil(t, p.Budget.Max)

	p = e.Extract("I still owe on it. Around $35k works for me", model.Profile{})
	require.NotNil(t, p.Budget.Max)
	assert.Equal(t, 35000.0, *p.Budget.Max)
}

func TestExtract_MonthlyAndDown(t *testing.T) {
	e := New(nil)

	p := e.Extract("I'd like to keep it under $450 a month with 5k down", model.Profile{})
	require.NotNil(t, p.Budget.MonthlyPayment)
	assert.Equal(t, 450.0, *p.Budget.MonthlyPayment)
	require.NotNil(t, p.Budget.DownPayment)
	assert.Equal(t, 5000.0, *p.Budget.DownPayment)
	assert.Nil(t, p.Budget.Max)

	p = e.Extract("down payment of $3,000", model.Profile{})
	require.NotNil(t, p.Budget.DownPayment)
	assert.Equal(t, 3000.0, *p.Budget.DownPayment)

	p = e.Extract("I could put 4 down", model.Profile{})
	require.NotNil(t, p.Budget.DownPayment)
	assert.Equal(t, 4000.0, *p.Budget.DownPayment)
}

func TestExtract_BodyTypePrecedence(t *testing.T) {
	e := New(nil)
	for _, in := range []string{
		"I can't decide between an SUV and a truck",
		"truck or suv, whatever is cheaper",
		"Maybe a crossover... or a pickup",
	} {
		p := e.Extract(in, model.Profile{})
		assert.Equal(t, model.BodyTypeTruck, p.VehicleInterest.BodyType, in)
	}

	p := e.Extract("an electric sedan", model.Profile{})
	assert.Equal(t, model.BodyTypeSedan, p.VehicleInterest.BodyType)
}

func TestExtract_ModelTable(t *testing.T) {
	e := New(nil)

	p := e.Extract("show me a Silverado or some other truck", model.Profile{})
	assert.Equal(t, "Silverado", p.VehicleInterest.Model)

	p = e.Extract("an EV maybe", model.Profile{})
	assert.Equal(t, "Electric", p.VehicleInterest.Model)
	assert.Equal(t, model.BodyTypeElectric, p.VehicleInterest.BodyType)
}

func TestExtract_FeatureAccumulation(t *testing.T) {
	e := New(nil)
	p := e.Fold(model.Profile{}, "I want towing", "and leather seats", "towing is a must")
	assert.Equal(t, []string{"towing", "leather"}, p.VehicleInterest.Features)
}

func TestExtract_TruckScenario(t *testing.T) {
	p := New(nil).Extract("I need a truck that can tow a boat for under $50k with leather seats", model.Profile{})

	assert.Equal(t, "Truck", p.VehicleInterest.Model)
	assert.Equal(t, model.BodyTypeTruck, p.VehicleInterest.BodyType)
	assert.Subset(t, p.VehicleInterest.Features, []string{"towing", "leather"})
	require.NotNil(t, p.Budget.Max)
	assert.Equal(t, 50000.0, *p.Budget.Max)
	assert.Equal(t, 40000.0, *p.Budget.Min)
}

func TestExtract_TradeScenario(t *testing.T) {
	p := New(nil).Extract("trading in my 2019 Ford Escape with 45,000 miles, I still owe about $12,000", model.Profile{})

	require.NotNil(t, p.TradeIn.HasTrade)
	assert.True(t, *p.TradeIn.HasTrade)
	require.NotNil(t, p.TradeIn.Vehicle)
	assert.Equal(t, "2019", p.TradeIn.Vehicle.Year)
	assert.Equal(t, "Ford", p.TradeIn.Vehicle.Make)
	assert.Equal(t, "Escape", p.TradeIn.Vehicle.Model)
	require.NotNil(t, p.TradeIn.Vehicle.Mileage)
	assert.Equal(t, 45000, *p.TradeIn.Vehicle.Mileage)
	require.NotNil(t, p.TradeIn.HasPayoff)
	assert.True(t, *p.TradeIn.HasPayoff)
	require.NotNil(t, p.TradeIn.PayoffAmount)
	assert.Equal(t, 12000.0, *p.TradeIn.PayoffAmount)
	assert.Nil(t, p.Budget.Max)
}

func TestExtract_MileageNeedsTradeVehicle(t *testing.T) {
	e := New(nil)

	p := e.Extract("it has 60k miles on it", model.Profile{})
	assert.Nil(t, p.TradeIn.Vehicle)

	p = e.Fold(model.Profile{}, "I want to trade my 2017 Chevy Cruze", "it has 60k miles on it")
	require.NotNil(t, p.TradeIn.Vehicle)
	require.NotNil(t, p.TradeIn.Vehicle.Mileage)
	assert.Equal(t, 60000, *p.TradeIn.Vehicle.Mileage)
	assert.Equal(t, "Cruze", p.TradeIn.Vehicle.Model)
}

func TestExtract_TradePresenceOnly(t *testing.T) {
	p := New(nil).Extract("I have a trade", model.Profile{})
	require.NotNil(t, p.TradeIn.HasTrade)
	assert.True(t, *p.TradeIn.HasTrade)
	assert.Nil(t, p.TradeIn.Vehicle)
}

func TestExtract_PayoffLastRuleWins(t *testing.T) {
	e := New(nil)

	p := e.Extract("I used to owe on it but it's paid off now", model.Profile{})
	require.NotNil(t, p.TradeIn.HasPayoff)
	assert.False(t, *p.TradeIn.HasPayoff)

	p = e.Extract("I don't owe anything", model.Profile{})
	require.NotNil(t, p.TradeIn.HasPayoff)
	assert.False(t, *p.TradeIn.HasPayoff)

	p = e.Extract("payoff is 8k", model.Profile{})
	require.NotNil(t, p.TradeIn.HasPayoff)
	assert.True(t, *p.TradeIn.HasPayoff)
	assert.Equal(t, 8000.0, *p.TradeIn.PayoffAmount)
}

func TestExtract_TradeMonthlyPayment(t *testing.T) {
	p := New(nil).Extract("I'm currently paying $350 a month", model.Profile{})
	require.NotNil(t, p.TradeIn.MonthlyPayment)
	assert.Equal(t, 350.0, *p.TradeIn.MonthlyPayment)
	assert.Nil(t, p.Budget.MonthlyPayment)
}

func TestExtract_Lender(t *testing.T) {
	e := New(nil)

	p := e.Extract("it's financed through WELLS FARGO", model.Profile{})
	assert.Equal(t, "Wells Fargo", p.TradeIn.FinancedWith)

	p = e.Extract("really nice ride", model.Profile{})
	assert.Empty(t, p.TradeIn.FinancedWith)
}

func TestExtract_PassThroughAndImmutability(t *testing.T) {
	e := New(nil)
	prior := e.Extract("under $50k, truck with leather", model.Profile{})
	before := prior.Clone()

	next := e.Extract("hello there", prior)
	assert.Equal(t, before, next)

	next = e.Extract("around $30k and a sunroof", prior)
	assert.Equal(t, 30000.0, *next.Budget.Max)
	assert.Equal(t, before, prior)
	assert.Equal(t, []string{"leather", "sunroof"}, next.VehicleInterest.Features)
}

func TestExtract_EmptyInput(t *testing.T) {
	assert.True(t, New(nil).Extract("   ", model.Profile{}).IsEmpty())
}

func TestExtract_WithOverrides(t *testing.T) {
	lib := patterns.Default()
	lib.Apply(&patterns.Overrides{
		Models:  []patterns.KeywordOverride{{Keyword: "sierra denali", Value: "Sierra Denali"}},
		Lenders: []string{"Prairie Credit"},
	})
	p := New(lib).Extract("a sierra denali, financed with prairie credit", model.Profile{})
	assert.Equal(t, "Sierra Denali", p.VehicleInterest.Model)
	assert.Equal(t, "Prairie Credit", p.TradeIn.FinancedWith)
}
