package sessionlog

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/showroom-assistant/internal/model"
)

var printer = message.NewPrinter(language.English)

func money(v float64) string {
	return printer.Sprintf("$%.0f", v)
}

// Summary renders the structured part of a session log as plain text, one
// line per known section.
func Summary(log model.SessionLog) string {
	var lines []string
	if log.CustomerName != "" {
		lines = append(lines, "Customer: "+log.CustomerName)
	}
	if log.CurrentStep != "" {
		lines = append(lines, "Step: "+log.CurrentStep)
	}
	if s := interest(log.VehicleInterest); s != "" {
		lines = append(lines, "Interest: "+s)
	}
	if s := budget(log.Budget); s != "" {
		lines = append(lines, "Budget: "+s)
	}
	if s := tradeIn(log.TradeIn); s != "" {
		lines = append(lines, "Trade-in: "+s)
	}
	if v := log.SelectedVehicle; v != nil {
		s := fmt.Sprintf("%s (#%s)", v.Title, v.StockNumber)
		if v.Price > 0 {
			s += " " + money(v.Price)
		}
		lines = append(lines, "Selected: "+s)
	}
	if len(log.Actions) > 0 {
		lines = append(lines, "Actions: "+strings.Join(log.Actions, ", "))
	}
	return strings.Join(lines, "\n")
}

// TranscriptText renders the transcript one message per line.
func TranscriptText(entries []model.TranscriptEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s: %s", e.Timestamp, e.Role, e.Content)
	}
	return b.String()
}

func interest(vi model.VehicleInterest) string {
	var parts []string
	switch {
	case vi.Model != "" && vi.BodyType != "" && !strings.EqualFold(vi.Model, string(vi.BodyType)):
		parts = append(parts, fmt.Sprintf("%s (%s)", vi.Model, vi.BodyType))
	case vi.Model != "":
		parts = append(parts, vi.Model)
	case vi.BodyType != "":
		parts = append(parts, string(vi.BodyType))
	}
	if len(vi.Features) > 0 {
		parts = append(parts, "features: "+strings.Join(vi.Features, ", "))
	}
	return strings.Join(parts, "; ")
}

func budget(b model.BudgetLog) string {
	var parts []string
	switch {
	case b.Min != nil && b.Max != nil:
		parts = append(parts, money(*b.Min)+"-"+money(*b.Max))
	case b.Max != nil:
		parts = append(parts, "up to "+money(*b.Max))
	}
	if b.MonthlyPayment != nil {
		parts = append(parts, "monthly "+money(*b.MonthlyPayment))
	}
	if b.DownPayment != nil {
		s := "down " + money(*b.DownPayment)
		if b.DownPaymentPercent != nil {
			s += fmt.Sprintf(" (%.1f%%)", *b.DownPaymentPercent)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "; ")
}

func tradeIn(t model.TradeIn) string {
	var parts []string
	if v := t.Vehicle; v != nil {
		s := strings.TrimSpace(strings.Join([]string{v.Year, v.Make, v.Model}, " "))
		if v.Mileage != nil {
			s += printer.Sprintf(", %d mi", *v.Mileage)
		}
		parts = append(parts, s)
	} else if t.HasTrade != nil && *t.HasTrade {
		parts = append(parts, "yes")
	}
	switch {
	case t.PayoffAmount != nil:
		parts = append(parts, "payoff "+money(*t.PayoffAmount))
	case t.HasPayoff != nil && *t.HasPayoff:
		parts = append(parts, "has payoff")
	case t.HasPayoff != nil:
		parts = append(parts, "no payoff")
	}
	if t.MonthlyPayment != nil {
		parts = append(parts, "paying "+money(*t.MonthlyPayment)+"/mo")
	}
	if t.FinancedWith != "" {
		parts = append(parts, "financed with "+t.FinancedWith)
	}
	return strings.Join(parts, "; ")
}
