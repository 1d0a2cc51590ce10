// Package objection classifies customer utterances into sales objections.
package objection

import (
	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/internal/patterns"
)

// Classifier evaluates the library's objection rules in their fixed order.
type Classifier struct {
	rules []patterns.ObjectionRule
}

// New creates a Classifier over lib. A nil lib uses patterns.Default().
func New(lib *patterns.Library) *Classifier {
	if lib == nil {
		lib = patterns.Default()
	}
	return &Classifier{rules: lib.Objections}
}

// Classify returns the first category with any matching alternative, along
// with a copy of its follow-up prompts. The zero result means no objection.
func (c *Classifier) Classify(utterance string) model.ObjectionResult {
	for _, rule := range c.rules {
		for _, re := range rule.Patterns {
			if re.MatchString(utterance) {
				return model.ObjectionResult{
					Category:  rule.Category,
					Followups: append([]string(nil), rule.Followups...),
				}
			}
		}
	}
	return model.ObjectionResult{}
}
