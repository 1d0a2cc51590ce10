// Package extract turns customer utterances into structured sales facts.
package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/internal/patterns"
)

// Words that, directly before a number, show it is not a purchase budget.
var budgetStopWords = map[string]bool{
	"payment": true, "payments": true, "monthly": true,
	"owe": true, "owed": true, "owes": true, "payoff": true,
	"paying": true, "down": true, "mileage": true,
}

// Words that, directly before a number, show it is the current loan payment.
var monthlyStopWords = map[string]bool{
	"current": true, "currently": true, "paying": true, "owe": true, "down": true,
}

type lender struct {
	name string
	re   *regexp.Regexp
}

// Extractor applies a pattern library to single utterances. It holds no
// per-conversation state and is safe for concurrent use.
type Extractor struct {
	lib     *patterns.Library
	lenders []lender
}

// New creates an Extractor over lib. A nil lib uses patterns.Default().
func New(lib *patterns.Library) *Extractor {
	if lib == nil {
		lib = patterns.Default()
	}
	e := &Extractor{lib: lib}
	for _, name := range lib.Lenders {
		e.lenders = append(e.lenders, lender{
			name: name,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`),
		})
	}
	return e
}

// Extract returns prior updated with everything found in utterance. prior is
// never modified. Categories are evaluated independently and a field is only
// replaced when its own rules match.
func (e *Extractor) Extract(utterance string, prior model.Profile) model.Profile {
	p := prior.Clone()
	text := strings.TrimSpace(utterance)
	if text == "" {
		return p
	}

	e.budget(text, &p.Budget)
	e.monthly(text, &p.Budget)
	e.downPayment(text, &p.Budget)
	e.vehicleInterest(text, &p.VehicleInterest)
	e.tradeIn(text, &p.TradeIn)
	e.payoff(text, &p.TradeIn)
	e.lender(text, &p.TradeIn)
	return p
}

// Fold reduces utterances over initial, oldest first.
func (e *Extractor) Fold(initial model.Profile, utterances ...string) model.Profile {
	p := initial
	for _, u := range utterances {
		p = e.Extract(u, p)
	}
	return p
}

func (e *Extractor) budget(text string, b *model.Budget) {
	for _, rule := range e.lib.Budget {
		for _, m := range rule.Re.FindAllStringSubmatchIndex(text, -1) {
			if e.notBudget(text, m[0], m[1]) {
				continue
			}
			switch rule.Kind {
			case patterns.BudgetCeiling:
				hi, ok := budgetAmount(group(text, m, 1), group(text, m, 2))
				if !ok {
					continue
				}
				b.Max = floatPtr(hi)
				b.Min = floatPtr(math.Round(hi * 0.8))
			case patterns.BudgetRange:
				if !moneyRange(text[m[0]:m[1]], group(text, m, 2), group(text, m, 4)) ||
					looksLikeYears(text[m[0]:m[1]], group(text, m, 1), group(text, m, 3)) {
					continue
				}
				lo, ok1 := budgetAmount(group(text, m, 1), group(text, m, 2))
				hi, ok2 := budgetAmount(group(text, m, 3), group(text, m, 4))
				if !ok1 || !ok2 {
					continue
				}
				// "30 to 40k" carries the suffix only on the upper bound.
				if group(text, m, 2) == "" && group(text, m, 4) != "" && lo < 1000 {
					lo *= 1000
				}
				if lo > hi {
					lo, hi = hi, lo
				}
				b.Min = floatPtr(lo)
				b.Max = floatPtr(hi)
			}
			return
		}
	}
}

func (e *Extractor) notBudget(text string, start, end int) bool {
	rest := text[end:]
	for _, re := range []*regexp.Regexp{e.lib.MonthlySuffix, e.lib.DownSuffix, e.lib.MilesSuffix, e.lib.CountSuffix} {
		if re != nil && re.MatchString(rest) {
			return true
		}
	}
	return precededBy(text[:start], budgetStopWords)
}

func (e *Extractor) monthly(text string, b *model.Budget) {
	for _, re := range e.lib.MonthlyPayment {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if precededBy(text[:m[0]], monthlyStopWords) {
				continue
			}
			if v, ok := scaledAmount(group(text, m, 1), group(text, m, 2), 0); ok {
				b.MonthlyPayment = floatPtr(v)
				return
			}
		}
	}
}

func (e *Extractor) downPayment(text string, b *model.Budget) {
	for _, re := range e.lib.DownPayment {
		if m := re.FindStringSubmatchIndex(text); m != nil {
			if v, ok := scaledAmount(group(text, m, 1), group(text, m, 2), 100); ok {
				b.DownPayment = floatPtr(v)
				return
			}
		}
	}
}

func (e *Extractor) vehicleInterest(text string, vi *model.VehicleInterest) {
	if name, ok := firstKeyword(text, e.lib.Models); ok {
		vi.Model = name
	} else if name, ok := firstKeyword(text, e.lib.ModelCategories); ok {
		vi.Model = name
	}

	for _, rule := range e.lib.BodyTypes {
		if rule.Re.MatchString(text) {
			vi.BodyType = rule.BodyType
			break
		}
	}

	for _, k := range e.lib.Features {
		if k.Match(text) && !vi.HasFeature(k.Value) {
			vi.Features = append(vi.Features, k.Value)
		}
	}
}

func (e *Extractor) tradeIn(text string, t *model.TradeIn) {
	if e.lib.TradePresence.MatchString(text) {
		t.HasTrade = boolPtr(true)
	}

	if m := e.lib.TradeVehicle.FindStringSubmatch(text); m != nil {
		t.HasTrade = boolPtr(true)
		t.Vehicle = &model.TradeVehicle{Year: m[1], Make: m[2], Model: m[3]}
	}

	if t.Vehicle != nil {
		if m := e.lib.Mileage.FindStringSubmatch(text); m != nil {
			if v, ok := scaledAmount(m[1], m[2], 0); ok {
				miles := int(v)
				t.Vehicle.Mileage = &miles
			}
		}
	}

	for _, re := range e.lib.TradePayment {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, ok := scaledAmount(m[1], m[2], 0); ok {
				t.MonthlyPayment = floatPtr(v)
				break
			}
		}
	}
}

// payoff applies every rule in order; a later rule overrides an earlier one.
func (e *Extractor) payoff(text string, t *model.TradeIn) {
	for _, rule := range e.lib.Payoff {
		switch rule.Kind {
		case patterns.PayoffKeyword:
			if rule.Re.MatchString(text) {
				t.HasPayoff = boolPtr(true)
			}
		case patterns.PayoffAmount:
			if m := rule.Re.FindStringSubmatch(text); m != nil {
				if v, ok := scaledAmount(m[1], m[2], 0); ok {
					t.PayoffAmount = floatPtr(v)
				}
			}
		case patterns.PayoffNoLoan:
			if rule.Re.MatchString(text) {
				t.HasPayoff = boolPtr(false)
			}
		}
	}
}

func (e *Extractor) lender(text string, t *model.TradeIn) {
	for _, l := range e.lenders {
		if l.re.MatchString(text) {
			t.FinancedWith = cases.Title(language.English).String(l.name)
			return
		}
	}
}

func firstKeyword(text string, keywords []patterns.Keyword) (string, bool) {
	for _, k := range keywords {
		if k.Match(text) {
			return k.Value, true
		}
	}
	return "", false
}

// budgetAmount normalizes a purchase budget: a thousands suffix scales small
// numbers, and bare numbers under 200 are read as thousands ("50" is $50k).
func budgetAmount(digits, suffix string) (float64, bool) {
	v, ok := parseAmount(digits)
	if !ok {
		return 0, false
	}
	switch {
	case v < 1000 && suffix != "":
		v *= 1000
	case v < 200:
		v *= 1000
	}
	return v, true
}

// scaledAmount applies a thousands suffix, and scales values below
// thousandsBelow when it is non-zero.
func scaledAmount(digits, suffix string, thousandsBelow float64) (float64, bool) {
	v, ok := parseAmount(digits)
	if !ok {
		return 0, false
	}
	if suffix != "" {
		v *= 1000
	} else if thousandsBelow > 0 && v < thousandsBelow {
		v *= 1000
	}
	return v, true
}

func parseAmount(digits string) (float64, bool) {
	digits = strings.ReplaceAll(digits, ",", "")
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// moneyRange reports whether a two-number range reads as money: it opens
// with "between", or a bound carries "$" or a thousands suffix. "5 and 8"
// or "2 to 3" do not.
func moneyRange(match, loSuffix, hiSuffix string) bool {
	lower := strings.ToLower(strings.TrimSpace(match))
	return strings.HasPrefix(lower, "between") || strings.Contains(match, "$") || loSuffix != "" || hiSuffix != ""
}

// looksLikeYears rejects "2019 to 2021" style ranges.
func looksLikeYears(match, a, b string) bool {
	if strings.ContainsAny(match, "$kK") {
		return false
	}
	isYear := func(s string) bool {
		v, ok := parseAmount(s)
		return ok && !strings.Contains(s, ",") && v >= 1900 && v <= 2100
	}
	return isYear(a) && isYear(b)
}

// clauseBreak ends a clause: punctuation followed by space or end of text.
// The comma in "$2,000" is not a break.
var clauseBreak = regexp.MustCompile(`[.,;:!?](?:\s|$)`)

// precededBy reports whether either of the two words before the match, in
// the same clause, is in stop.
func precededBy(before string, stop map[string]bool) bool {
	if locs := clauseBreak.FindAllStringIndex(before, -1); len(locs) > 0 {
		before = before[locs[len(locs)-1][1]:]
	}
	words := strings.Fields(strings.ToLower(before))
	for i := len(words) - 1; i >= 0 && i >= len(words)-2; i-- {
		if stop[strings.Trim(words[i], ".,;:!?'\"")] {
			return true
		}
	}
	return false
}

func group(text string, m []int, n int) string {
	if 2*n+1 >= len(m) || m[2*n] < 0 {
		return ""
	}
	return text[m[2*n]:m[2*n+1]]
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
