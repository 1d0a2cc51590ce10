package speech

import "strings"

// Voice is an installed on-device voice.
type Voice struct {
	Name   string
	Locale string
}

// DefaultPreferredVoices are known natural-sounding voices, best first.
var DefaultPreferredVoices = []string{
	"Samantha",
	"Ava",
	"Allison",
	"Daniel",
	"Karen",
	"English_(America)",
}

// SelectVoice picks the first preferred voice that is installed, else the
// first English voice, else "" for the engine default.
func SelectVoice(voices []Voice, preferred []string) string {
	for _, want := range preferred {
		for _, v := range voices {
			if strings.EqualFold(v.Name, want) {
				return v.Name
			}
		}
	}
	for _, v := range voices {
		if strings.HasPrefix(strings.ToLower(v.Locale), "en") {
			return v.Name
		}
	}
	return ""
}
