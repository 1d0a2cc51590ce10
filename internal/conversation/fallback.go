package conversation

// Replies used when the remote chat call fails. The choice depends only on
// whether the inventory search found anything.
const (
	FallbackWithMatches = "I found some vehicles that might interest you. Take a look below, and let me know if you'd like more details on any of them."
	FallbackNoMatches   = "I'm having trouble connecting right now, but I'd be happy to help you find the right vehicle. Could you tell me a bit more about what you're looking for?"
)

// FallbackText returns the deterministic reply for a search that returned
// matches vehicles.
func FallbackText(matches int) string {
	if matches > 0 {
		return FallbackWithMatches
	}
	return FallbackNoMatches
}
