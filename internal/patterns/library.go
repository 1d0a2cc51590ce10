// Package patterns holds the ordered text-matching rules used to pull sales
// signals and objections out of customer utterances.
package patterns

import (
	"regexp"
	"strings"

	"github.com/sells-group/showroom-assistant/internal/model"
)

// amount matches "$50,000", "50000", "45.5" and an optional thousands
// suffix. It contributes two groups: the digits and the suffix.
const amount = `\$?\s?(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)\s?(k|grand|thousand)?\b`

// BudgetKind tells the extractor how to interpret a budget rule's groups.
type BudgetKind int

const (
	// BudgetCeiling captures one amount used as the maximum.
	BudgetCeiling BudgetKind = iota
	// BudgetRange captures two amounts: minimum and maximum.
	BudgetRange
)

// BudgetRule is one entry of the ordered budget pattern list.
type BudgetRule struct {
	Name string
	Kind BudgetKind
	Re   *regexp.Regexp
}

// Keyword maps a case-insensitive whole-word keyword to a canonical value.
type Keyword struct {
	Keyword string
	Value   string
	re      *regexp.Regexp
}

// NewKeyword compiles a whole-word matcher for kw.
func NewKeyword(kw, value string) Keyword {
	kw = strings.ToLower(strings.TrimSpace(kw))
	return Keyword{
		Keyword: kw,
		Value:   value,
		re:      regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`),
	}
}

// Match reports whether the keyword occurs in text.
func (k Keyword) Match(text string) bool {
	if k.re == nil {
		return false
	}
	return k.re.MatchString(text)
}

// BodyTypeRule is one branch of the body-type if/else chain.
type BodyTypeRule struct {
	BodyType model.BodyType
	Re       *regexp.Regexp
}

// PayoffKind tags a payoff rule. Payoff rules are applied in list order
// without short-circuiting, so a later rule overrides an earlier one.
type PayoffKind int

const (
	// PayoffKeyword marks an outstanding loan ("owe", "payoff").
	PayoffKeyword PayoffKind = iota
	// PayoffAmount captures the amount still owed.
	PayoffAmount
	// PayoffNoLoan marks a vehicle owned outright.
	PayoffNoLoan
)

// PayoffRule is one tagged rule of the payoff sequence.
type PayoffRule struct {
	Kind PayoffKind
	Re   *regexp.Regexp
}

// ObjectionRule groups the alternatives and follow-up prompts of a category.
type ObjectionRule struct {
	Category  model.ObjectionCategory
	Patterns  []*regexp.Regexp
	Followups []string
}

// Library is the complete ordered rule set. Every slice is evaluated in
// order and the first hit wins unless noted otherwise.
type Library struct {
	Budget         []BudgetRule
	MonthlyPayment []*regexp.Regexp
	DownPayment    []*regexp.Regexp

	// Models are named models, checked before the generic ModelCategories.
	Models          []Keyword
	ModelCategories []Keyword
	BodyTypes       []BodyTypeRule
	Features        []Keyword

	TradePresence *regexp.Regexp
	TradeVehicle  *regexp.Regexp
	Mileage       *regexp.Regexp
	TradePayment  []*regexp.Regexp
	Payoff        []PayoffRule
	Lenders       []string

	// Guards reject a numeric budget/payment match when the words right
	// before or after it show the number belongs to something else.
	MonthlySuffix *regexp.Regexp
	DownSuffix    *regexp.Regexp
	MilesSuffix   *regexp.Regexp
	CountSuffix   *regexp.Regexp

	Objections []ObjectionRule
}

var (
	budgetRules = []BudgetRule{
		{Name: "ceiling", Kind: BudgetCeiling, Re: regexp.MustCompile(`(?i)\b(?:under|below|less than|no more than|max(?:imum)?(?: of)?|up to|at most|within)\s+` + amount)},
		{Name: "around", Kind: BudgetCeiling, Re: regexp.MustCompile(`(?i)\b(?:around|about|roughly|approximately|close to)\s+` + amount)},
		{Name: "range", Kind: BudgetRange, Re: regexp.MustCompile(`(?i)(?:between\s+)?` + amount + `\s*(?:to|-|and)\s*` + amount)},
		{Name: "spend", Kind: BudgetCeiling, Re: regexp.MustCompile(`(?i)\b(?:spend|budget(?: is| of)?|afford|price range(?: is| of)?)\s+(?:about\s+|around\s+|up to\s+)?` + amount)},
	}

	monthlyRules = []*regexp.Regexp{
		regexp.MustCompile(`(?i)` + amount + `\s*(?:/|per|a|an|each)\s*(?:mo\b|month)`),
		regexp.MustCompile(`(?i)\bmonthly(?: payment)?(?:\s+(?:of|around|about|under|below|is))?\s+` + amount),
		regexp.MustCompile(`(?i)\bpayments?\s+(?:of|around|about|under|below|near|at)\s+` + amount),
	}

	downRules = []*regexp.Regexp{
		regexp.MustCompile(`(?i)` + amount + `\s*(?:down\b|as (?:a )?down payment|for (?:a |the )?down payment|to put down)`),
		regexp.MustCompile(`(?i)\bdown payment(?:\s+(?:of|around|about|is|would be))?\s+(?:about\s+|around\s+)?` + amount),
	}

	tradePaymentRules = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:currently pay(?:ing)?|current (?:car )?payment(?: is)?|paying)\s+(?:about\s+|around\s+)?` + amount),
	}

	payoffRules = []PayoffRule{
		{Kind: PayoffKeyword, Re: regexp.MustCompile(`(?i)\bowe[sd]?\b|\bpay\s?off\b|\bpayoff\b`)},
		{Kind: PayoffAmount, Re: regexp.MustCompile(`(?i)\b(?:owe[sd]?|payoff(?:\s+(?:is|of|amount(?:\s+is)?))?|pay\s?off(?:\s+is)?|left on (?:the|my) loan)\s+(?:still\s+)?(?:(?:about|around|roughly|approximately|like|close to|maybe)\s+)?` + amount)},
		{Kind: PayoffNoLoan, Re: regexp.MustCompile(`(?i)\bpaid (?:it )?off\b|\bown it\b|\bno loan\b|\bdon'?t owe\b|\bdo not owe\b|\bfree and clear\b|\bno payoff\b`)},
	}

	bodyTypeRules = []BodyTypeRule{
		{BodyType: model.BodyTypeTruck, Re: regexp.MustCompile(`(?i)\b(?:trucks?|pickups?)\b`)},
		{BodyType: model.BodyTypeSUV, Re: regexp.MustCompile(`(?i)\b(?:suvs?|crossovers?)\b`)},
		{BodyType: model.BodyTypeSedan, Re: regexp.MustCompile(`(?i)\b(?:sedans?|cars?)\b`)},
		{BodyType: model.BodyTypeElectric, Re: regexp.MustCompile(`(?i)\b(?:electric|evs?)\b`)},
	}

	tradePresence = regexp.MustCompile(`(?i)\btrad(?:e|ing|ed)\b`)
	tradeVehicle  = regexp.MustCompile(`(?i)\btrad(?:e|ing)(?:[\s-]?in)?\s+(?:(?:my|a|the|our|an)\s+)?((?:19|20)\d{2})\s+([A-Za-z][A-Za-z-]*)\s+([A-Za-z0-9][A-Za-z0-9-]*)`)
	mileage       = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+|\d+)\s?(k)?\s*(?:miles|mi)\b`)

	monthlySuffix = regexp.MustCompile(`(?i)^\s*(?:/|per|a|an|each)\s*(?:mo\b|month)`)
	downSuffix    = regexp.MustCompile(`(?i)^\s*(?:down\b|as (?:a )?down)`)
	milesSuffix   = regexp.MustCompile(`(?i)^\s*(?:miles|mi)\b`)
	countSuffix   = regexp.MustCompile(`(?i)^\s*(?:(?:car |booster )?seats?|seaters?|people|persons?|passengers?|adults?|kids?|children|years?|yrs?|months?|weeks?|days?|hours?|rows?|doors?|dogs?)\b`)
)

var namedModels = [][2]string{
	{"silverado", "Silverado"},
	{"colorado", "Colorado"},
	{"sierra", "Sierra"},
	{"f-150", "F-150"},
	{"f150", "F-150"},
	{"tahoe", "Tahoe"},
	{"suburban", "Suburban"},
	{"traverse", "Traverse"},
	{"equinox", "Equinox"},
	{"blazer", "Blazer"},
	{"trailblazer", "Trailblazer"},
	{"trax", "Trax"},
	{"malibu", "Malibu"},
	{"camaro", "Camaro"},
	{"corvette", "Corvette"},
	{"bolt", "Bolt"},
}

var modelCategories = [][2]string{
	{"truck", "Truck"},
	{"pickup", "Truck"},
	{"suv", "SUV"},
	{"crossover", "SUV"},
	{"sedan", "Sedan"},
	{"electric", "Electric"},
	{"ev", "Electric"},
	{"hybrid", "Hybrid"},
	{"sports car", "Sports Car"},
	{"minivan", "Minivan"},
}

var featureKeywords = [][2]string{
	{"tow", "towing"},
	{"towing", "towing"},
	{"haul", "towing"},
	{"leather", "leather"},
	{"sunroof", "sunroof"},
	{"moonroof", "sunroof"},
	{"awd", "awd"},
	{"all-wheel drive", "awd"},
	{"all wheel drive", "awd"},
	{"4x4", "4wd"},
	{"four wheel drive", "4wd"},
	{"third row", "third-row"},
	{"3rd row", "third-row"},
	{"navigation", "navigation"},
	{"carplay", "carplay"},
	{"android auto", "android-auto"},
	{"heated seats", "heated-seats"},
	{"backup camera", "backup-camera"},
	{"remote start", "remote-start"},
	{"blind spot", "safety"},
	{"lane assist", "safety"},
	{"safety", "safety"},
	{"fuel efficient", "fuel-economy"},
	{"gas mileage", "fuel-economy"},
	{"mpg", "fuel-economy"},
}

var defaultLenders = []string{
	"ally",
	"chase",
	"capital one",
	"wells fargo",
	"bank of america",
	"santander",
	"chrysler capital",
	"ford credit",
	"toyota financial",
	"honda financial",
	"navy federal",
	"westlake",
	"carmax",
	"credit union",
}

var defaultObjections = []struct {
	category  model.ObjectionCategory
	patterns  []string
	followups []string
}{
	{
		category: model.ObjectionPrice,
		patterns: []string{
			`\btoo (?:expensive|much|pricey|high)\b`,
			`\bcan'?t afford\b`,
			`\bout of (?:my|our) (?:budget|price range)\b`,
			`\bprice is (?:too )?high\b`,
			`\bcheaper\b`,
			`\b(?:lower|better) (?:the )?(?:price|deal)\b`,
			`\bdiscount\b`,
		},
		followups: []string{
			"Would a lower monthly payment with a longer term work better for you?",
			"Can I show you similar models that fit your budget?",
			"Would you like to see the incentives and rebates available right now?",
		},
	},
	{
		category: model.ObjectionComparison,
		patterns: []string{
			`\b(?:other|another) dealer(?:ship)?s?\b`,
			`\bcompetitors?\b`,
			`\bshop(?:ping)? around\b`,
			`\bcompar(?:e|ing)\b`,
			`\bversus\b|\bvs\.?\s`,
			`\b(?:toyota|honda|ford|nissan|hyundai|kia|ram) (?:has|offers|is offering)\b`,
			`\bbetter offer\b`,
		},
		followups: []string{
			"What did you like about the other vehicle you're considering?",
			"Would a side-by-side comparison of features and ownership costs help?",
			"Did the other offer include the same warranty and equipment?",
		},
	},
	{
		category: model.ObjectionReliability,
		patterns: []string{
			`\breliab(?:le|ility)\b`,
			`\bbreaks? down\b`,
			`\brepairs?\b`,
			`\brecalls?\b`,
			`\blasts? long\b`,
			`\bwarranty\b`,
			`\b(?:problems?|issues?) with\b`,
			`\bdependab(?:le|ility)\b`,
		},
		followups: []string{
			"Would you like to see the warranty coverage and reliability ratings for this model?",
			"Can I walk you through the maintenance plans we offer?",
		},
	},
	{
		category: model.ObjectionValue,
		patterns: []string{
			`\bworth (?:it|the)\b`,
			`\bresale\b`,
			`\bdepreciat(?:e|es|ion)\b`,
			`\bvalue\b`,
			`\bbang for\b`,
		},
		followups: []string{
			"Would it help to look at the projected resale value for this model?",
			"Can I show you the features that come standard at this price?",
		},
	},
	{
		category: model.ObjectionConcerns,
		patterns: []string{
			`\bnot sure\b`,
			`\bthink (?:about it|it over)\b`,
			`\btalk (?:to|with) my (?:wife|husband|spouse|partner)\b`,
			`\bnot ready\b`,
			`\bjust looking\b`,
			`\bsleep on it\b`,
			`\bhesitant\b`,
			`\bworried\b`,
			`\bconcern(?:ed|s)?\b`,
		},
		followups: []string{
			"What questions can I answer to help you feel more confident?",
			"Would it help to take a test drive before deciding?",
			"Is there anyone else you'd like to include in this decision?",
		},
	},
}

// Default returns a fresh copy of the built-in library. Callers may extend
// the returned value without affecting other libraries.
func Default() *Library {
	lib := &Library{
		Budget:         append([]BudgetRule(nil), budgetRules...),
		MonthlyPayment: append([]*regexp.Regexp(nil), monthlyRules...),
		DownPayment:    append([]*regexp.Regexp(nil), downRules...),
		BodyTypes:      append([]BodyTypeRule(nil), bodyTypeRules...),
		TradePresence:  tradePresence,
		TradeVehicle:   tradeVehicle,
		Mileage:        mileage,
		TradePayment:   append([]*regexp.Regexp(nil), tradePaymentRules...),
		Payoff:         append([]PayoffRule(nil), payoffRules...),
		Lenders:        append([]string(nil), defaultLenders...),
		MonthlySuffix:  monthlySuffix,
		DownSuffix:     downSuffix,
		MilesSuffix:    milesSuffix,
		CountSuffix:    countSuffix,
	}
	for _, kv := range namedModels {
		lib.Models = append(lib.Models, NewKeyword(kv[0], kv[1]))
	}
	for _, kv := range modelCategories {
		lib.ModelCategories = append(lib.ModelCategories, NewKeyword(kv[0], kv[1]))
	}
	for _, kv := range featureKeywords {
		lib.Features = append(lib.Features, NewKeyword(kv[0], kv[1]))
	}
	for _, o := range defaultObjections {
		rule := ObjectionRule{
			Category:  o.category,
			Followups: append([]string(nil), o.followups...),
		}
		for _, p := range o.patterns {
			rule.Patterns = append(rule.Patterns, regexp.MustCompile(`(?i)`+p))
		}
		lib.Objections = append(lib.Objections, rule)
	}
	return lib
}

// Objection returns the rule for category, or nil.
func (l *Library) Objection(category model.ObjectionCategory) *ObjectionRule {
	for i := range l.Objections {
		if l.Objections[i].Category == category {
			return &l.Objections[i]
		}
	}
	return nil
}
