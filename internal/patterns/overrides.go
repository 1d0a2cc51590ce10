package patterns

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/showroom-assistant/internal/model"
)

// Overrides is the YAML shape of dealership-specific additions to the
// built-in library. Only vocabulary is configurable; numeric rules stay in code.
type Overrides struct {
	Models    []KeywordOverride                    `yaml:"models"`
	Features  []KeywordOverride                    `yaml:"features"`
	Lenders   []string                             `yaml:"lenders"`
	Followups map[model.ObjectionCategory][]string `yaml:"followups"`
}

// Each objection category offers this many follow-up prompts.
const (
	MinFollowups = 2
	MaxFollowups = 3
)

// KeywordOverride maps one keyword to its canonical value.
type KeywordOverride struct {
	Keyword string `yaml:"keyword"`
	Value   string `yaml:"value"`
}

// LoadOverrides reads an overrides file. The YAML has a top-level
// "patterns" key.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "patterns: read overrides %s", path)
	}

	var wrapper struct {
		Patterns Overrides `yaml:"patterns"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "patterns: parse overrides")
	}
	if err := wrapper.Patterns.validate(); err != nil {
		return nil, err
	}
	return &wrapper.Patterns, nil
}

func (o *Overrides) validate() error {
	for _, k := range append(append([]KeywordOverride(nil), o.Models...), o.Features...) {
		if strings.TrimSpace(k.Keyword) == "" || strings.TrimSpace(k.Value) == "" {
			return eris.Errorf("patterns: override keyword and value are required (got %q -> %q)", k.Keyword, k.Value)
		}
	}
	for cat, prompts := range o.Followups {
		if cat == model.ObjectionNone || !knownCategory(cat) {
			return eris.Errorf("patterns: unknown objection category %q", cat)
		}
		n := 0
		for _, p := range prompts {
			if strings.TrimSpace(p) == "" {
				return eris.Errorf("patterns: blank follow-up for %q", cat)
			}
			n++
		}
		if n < MinFollowups || n > MaxFollowups {
			return eris.Errorf("patterns: %q needs %d to %d follow-ups, got %d", cat, MinFollowups, MaxFollowups, n)
		}
	}
	return nil
}

// Apply merges o into l. Named models and features are checked before the
// built-in ones, lenders are appended, and follow-ups replace the category's
// defaults.
func (l *Library) Apply(o *Overrides) {
	if o == nil {
		return
	}

	models := make([]Keyword, 0, len(o.Models)+len(l.Models))
	for _, k := range o.Models {
		models = append(models, NewKeyword(k.Keyword, k.Value))
	}
	l.Models = append(models, l.Models...)

	features := make([]Keyword, 0, len(o.Features)+len(l.Features))
	for _, k := range o.Features {
		features = append(features, NewKeyword(k.Keyword, k.Value))
	}
	l.Features = append(features, l.Features...)

	for _, name := range o.Lenders {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && !containsString(l.Lenders, name) {
			l.Lenders = append(l.Lenders, name)
		}
	}

	for cat, prompts := range o.Followups {
		if len(prompts) < MinFollowups || len(prompts) > MaxFollowups {
			continue
		}
		if rule := l.Objection(cat); rule != nil {
			rule.Followups = append([]string(nil), prompts...)
		}
	}
}

// Load returns the default library with the overrides file at path applied.
// An empty path yields the default library.
func Load(path string) (*Library, error) {
	lib := Default()
	if path == "" {
		return lib, nil
	}
	o, err := LoadOverrides(path)
	if err != nil {
		return nil, err
	}
	lib.Apply(o)
	return lib, nil
}

func knownCategory(c model.ObjectionCategory) bool {
	for _, known := range model.ObjectionCategories() {
		if c == known {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
