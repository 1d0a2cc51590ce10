package model

// BodyType is the coarse vehicle category a customer is interested in.
type BodyType string

const (
	BodyTypeTruck    BodyType = "Truck"
	BodyTypeSUV      BodyType = "SUV"
	BodyTypeSedan    BodyType = "Sedan"
	BodyTypeElectric BodyType = "Electric"
)

// Profile is the structured sales data accumulated across one conversation.
// Nil pointers and empty strings mean "not yet known".
type Profile struct {
	VehicleInterest VehicleInterest `json:"vehicle_interest"`
	Budget          Budget          `json:"budget"`
	TradeIn         TradeIn         `json:"trade_in"`
}

// VehicleInterest captures what the customer wants to buy.
type VehicleInterest struct {
	Model    string   `json:"model,omitempty"`
	BodyType BodyType `json:"body_type,omitempty"`
	Features []string `json:"features,omitempty"` // discovery order, no duplicates
}

// Budget holds dollar amounts. Min is derived as 80% of Max when only a
// ceiling was stated.
type Budget struct {
	Min            *float64 `json:"min,omitempty"`
	Max            *float64 `json:"max,omitempty"`
	MonthlyPayment *float64 `json:"monthly_payment,omitempty"`
	DownPayment    *float64 `json:"down_payment,omitempty"`
}

// TradeIn describes the vehicle the customer intends to trade.
type TradeIn struct {
	HasTrade       *bool         `json:"has_trade,omitempty"`
	Vehicle        *TradeVehicle `json:"vehicle,omitempty"`
	HasPayoff      *bool         `json:"has_payoff,omitempty"`
	PayoffAmount   *float64      `json:"payoff_amount,omitempty"`
	MonthlyPayment *float64      `json:"monthly_payment,omitempty"`
	FinancedWith   string        `json:"financed_with,omitempty"`
}

// TradeVehicle is the year/make/model of a trade-in.
type TradeVehicle struct {
	Year    string `json:"year,omitempty"`
	Make    string `json:"make,omitempty"`
	Model   string `json:"model,omitempty"`
	Mileage *int   `json:"mileage,omitempty"`
}

// HasFeature reports whether tag was already discovered.
func (v VehicleInterest) HasFeature(tag string) bool {
	for _, f := range v.Features {
		if f == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can derive a new profile without
// touching the one they were given.
func (p Profile) Clone() Profile {
	out := p
	if p.VehicleInterest.Features != nil {
		out.VehicleInterest.Features = append([]string(nil), p.VehicleInterest.Features...)
	}
	out.Budget = Budget{
		Min:            cloneFloat(p.Budget.Min),
		Max:            cloneFloat(p.Budget.Max),
		MonthlyPayment: cloneFloat(p.Budget.MonthlyPayment),
		DownPayment:    cloneFloat(p.Budget.DownPayment),
	}
	out.TradeIn.HasTrade = cloneBool(p.TradeIn.HasTrade)
	out.TradeIn.HasPayoff = cloneBool(p.TradeIn.HasPayoff)
	out.TradeIn.PayoffAmount = cloneFloat(p.TradeIn.PayoffAmount)
	out.TradeIn.MonthlyPayment = cloneFloat(p.TradeIn.MonthlyPayment)
	if p.TradeIn.Vehicle != nil {
		v := *p.TradeIn.Vehicle
		if v.Mileage != nil {
			m := *v.Mileage
			v.Mileage = &m
		}
		out.TradeIn.Vehicle = &v
	}
	return out
}

// IsEmpty reports whether nothing has been extracted yet.
func (p Profile) IsEmpty() bool {
	vi, b, t := p.VehicleInterest, p.Budget, p.TradeIn
	return vi.Model == "" && vi.BodyType == "" && len(vi.Features) == 0 &&
		b.Min == nil && b.Max == nil && b.MonthlyPayment == nil && b.DownPayment == nil &&
		t.HasTrade == nil && t.Vehicle == nil && t.HasPayoff == nil &&
		t.PayoffAmount == nil && t.MonthlyPayment == nil && t.FinancedWith == ""
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
