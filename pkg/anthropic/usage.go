package anthropic

import (
	"strings"

	"go.uber.org/zap"
)

// Usage counts the tokens billed for one call.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheWriteTokens int64
	CacheReadTokens  int64
}

// price is USD per million tokens.
type price struct {
	input, output float64
}

// Keyed by model family so dated snapshot IDs resolve.
var prices = []struct {
	family string
	price  price
}{
	{"claude-haiku-4-5", price{1.00, 5.00}},
	{"claude-sonnet-4-5", price{3.00, 15.00}},
	{"claude-opus-4-1", price{15.00, 75.00}},
	{"claude-3-5-haiku", price{0.80, 4.00}},
}

func priceFor(model string) (price, bool) {
	for _, p := range prices {
		if strings.HasPrefix(model, p.family) {
			return p.price, true
		}
	}
	return price{}, false
}

// Add returns the sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:      u.InputTokens + o.InputTokens,
		OutputTokens:     u.OutputTokens + o.OutputTokens,
		CacheWriteTokens: u.CacheWriteTokens + o.CacheWriteTokens,
		CacheReadTokens:  u.CacheReadTokens + o.CacheReadTokens,
	}
}

// Cost estimates the USD cost of u on model. Cache writes bill at 1.25x the
// input rate and cache reads at 0.1x. Unknown models cost 0.
func (u Usage) Cost(model string) float64 {
	p, ok := priceFor(model)
	if !ok {
		return 0
	}
	const mtok = 1e6
	in := float64(u.InputTokens) + 1.25*float64(u.CacheWriteTokens) + 0.1*float64(u.CacheReadTokens)
	return (in*p.input + float64(u.OutputTokens)*p.output) / mtok
}

// Log writes u and its estimated cost at debug level.
func (u Usage) Log(model, phase string) {
	zap.L().Debug("anthropic: usage",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheWriteTokens),
		zap.Int64("cache_read_tokens", u.CacheReadTokens),
		zap.Float64("estimated_cost_usd", u.Cost(model)),
	)
}
