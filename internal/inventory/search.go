package inventory

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/showroom-assistant/internal/model"
)

// DefaultLimit caps the matches attached to one assistant reply.
const DefaultLimit = 6

// category groups the words a customer uses for a class of vehicle with
// the body styles and model names that belong to it.
type category struct {
	words  []string
	bodies []string
	models []string
}

var categories = []category{
	{
		words:  []string{"truck", "trucks", "pickup", "tow", "towing", "haul"},
		bodies: []string{"truck", "pickup", "crew cab", "double cab", "regular cab"},
		models: []string{"silverado", "sierra", "colorado", "canyon", "f-150", "f150", "ram", "tacoma", "tundra", "ranger", "frontier"},
	},
	{
		words:  []string{"suv", "suvs", "crossover", "family", "third row", "3rd row"},
		bodies: []string{"suv", "sport utility", "crossover"},
		models: []string{"tahoe", "suburban", "equinox", "traverse", "blazer", "trailblazer", "trax", "yukon", "acadia", "terrain", "explorer", "escape", "rav4", "cr-v", "highlander"},
	},
	{
		words:  []string{"sedan", "sedans", "car", "commuter"},
		bodies: []string{"sedan"},
		models: []string{"malibu", "camry", "accord", "civic", "corolla", "altima"},
	},
	{
		words:  []string{"electric", "ev", "evs", "plug-in"},
		bodies: []string{"electric"},
		models: []string{"bolt", "lyriq", "hummer ev", "equinox ev", "blazer ev", "silverado ev", "mach-e", "model 3", "model y"},
	},
}

// Words that never identify a vehicle on their own.
var searchStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "i": true, "me": true, "my": true,
	"and": true, "or": true, "for": true, "with": true, "want": true,
	"need": true, "looking": true, "show": true, "some": true, "any": true,
	"in": true, "of": true, "to": true, "is": true, "it": true, "that": true,
	"new": true, "used": true, "can": true, "like": true, "would": true,
}

type scored struct {
	v     model.Vehicle
	score int
}

// Search ranks vehicles against a free-form query by substring and
// category heuristics and returns at most limit matches, best first. A
// limit of zero or less means DefaultLimit. Ties keep catalog order.
func Search(vehicles []model.Vehicle, query string, limit int) []model.Vehicle {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	tokens := tokenize(q)
	wanted := wantedCategories(q, tokens)

	var hits []scored
	for _, v := range vehicles {
		if s := score(v, q, tokens, wanted); s > 0 {
			hits = append(hits, scored{v: v, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]model.Vehicle, len(hits))
	for i, h := range hits {
		out[i] = h.v
	}
	return out
}

func tokenize(q string) []string {
	fields := strings.FieldsFunc(q, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 && !searchStopWords[f] {
			out = append(out, f)
		}
	}
	return out
}

func wantedCategories(q string, tokens []string) []category {
	var out []category
	for _, c := range categories {
		for _, w := range c.words {
			if strings.Contains(w, " ") {
				if strings.Contains(q, w) {
					out = append(out, c)
					break
				}
				continue
			}
			if containsToken(tokens, w) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func score(v model.Vehicle, q string, tokens []string, wanted []category) int {
	mdl := strings.ToLower(v.Model)
	mk := strings.ToLower(v.Make)
	trim := strings.ToLower(v.Trim)
	color := strings.ToLower(v.Color)
	body := strings.ToLower(v.BodyStyle)

	s := 0
	if mdl != "" && strings.Contains(q, mdl) {
		s += 5
	}
	if mk != "" && strings.Contains(q, mk) {
		s += 2
	}
	if v.Year > 0 && containsToken(tokens, strconv.Itoa(v.Year)) {
		s += 2
	}
	for _, t := range tokens {
		if len(t) < 3 {
			continue
		}
		switch {
		case mdl != "" && strings.Contains(mdl, t):
			s += 3
		case trim != "" && strings.Contains(trim, t):
			s++
		case color != "" && strings.Contains(color, t):
			s++
		}
	}
	for _, c := range wanted {
		if inCategory(c, mdl, body) {
			s += 3
		}
	}
	return s
}

func inCategory(c category, mdl, body string) bool {
	for _, b := range c.bodies {
		if body != "" && strings.Contains(body, b) {
			return true
		}
	}
	for _, m := range c.models {
		if mdl != "" && strings.Contains(mdl, m) {
			return true
		}
	}
	return false
}

func containsToken(tokens []string, t string) bool {
	for _, tok := range tokens {
		if tok == t {
			return true
		}
	}
	return false
}
