package model

// ObjectionCategory is one of a closed set of sales objections.
type ObjectionCategory string

const (
	ObjectionNone        ObjectionCategory = ""
	ObjectionPrice       ObjectionCategory = "price"
	ObjectionComparison  ObjectionCategory = "comparison"
	ObjectionReliability ObjectionCategory = "reliability"
	ObjectionValue       ObjectionCategory = "value"
	ObjectionConcerns    ObjectionCategory = "concerns"
)

// ObjectionCategories returns the categories in evaluation order.
func ObjectionCategories() []ObjectionCategory {
	return []ObjectionCategory{
		ObjectionPrice,
		ObjectionComparison,
		ObjectionReliability,
		ObjectionValue,
		ObjectionConcerns,
	}
}

// ObjectionResult is recomputed for every utterance and never persisted in
// the profile.
type ObjectionResult struct {
	Category  ObjectionCategory `json:"category,omitempty"`
	Followups []string          `json:"followups,omitempty"`
}

// Detected reports whether any objection matched.
func (r ObjectionResult) Detected() bool {
	return r.Category != ObjectionNone
}
