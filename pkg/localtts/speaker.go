package localtts

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Voice is one installed engine voice.
type Voice struct {
	Name   string `json:"name"`
	Locale string `json:"locale"`
}

// Speaker runs a local text-to-speech engine.
type Speaker struct {
	// Binary is "espeak-ng", "espeak" or "say".
	Binary string
	// Rate is words per minute; zero keeps the engine default.
	Rate int
}

// NewSpeaker returns a Speaker for binary, defaulting to espeak-ng.
func NewSpeaker(binary string, rate int) *Speaker {
	if binary == "" {
		binary = "espeak-ng"
	}
	return &Speaker{Binary: binary, Rate: rate}
}

func (s *Speaker) isSay() bool {
	return filepath.Base(s.Binary) == "say"
}

// Voices lists the engine's installed voices.
func (s *Speaker) Voices(ctx context.Context) ([]Voice, error) {
	args := []string{"--voices"}
	if s.isSay() {
		args = []string{"-v", "?"}
	}
	out, err := exec.CommandContext(ctx, s.Binary, args...).Output()
	if err != nil {
		return nil, eris.Wrapf(err, "localtts: list voices with %s", s.Binary)
	}
	if s.isSay() {
		return ParseSayVoices(out), nil
	}
	return ParseEspeakVoices(out), nil
}

// Speak starts speaking text with voice. An empty voice uses the engine default.
func (s *Speaker) Speak(ctx context.Context, text, voice string) (*Process, error) {
	var args []string
	if voice != "" {
		args = append(args, "-v", voice)
	}
	if s.Rate > 0 {
		if s.isSay() {
			args = append(args, "-r", strconv.Itoa(s.Rate))
		} else {
			args = append(args, "-s", strconv.Itoa(s.Rate))
		}
	}
	args = append(args, "--", text)
	return Start(exec.CommandContext(ctx, s.Binary, args...))
}

// ParseEspeakVoices parses `espeak-ng --voices` output:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US
func ParseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 4 || f[0] == "Pty" {
			continue
		}
		voices = append(voices, Voice{Name: f[3], Locale: f[1]})
	}
	return voices
}

// ParseSayVoices parses `say -v ?` output:
//
//	Samantha            en_US    # Hello, my name is Samantha.
func ParseSayVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		f := strings.Fields(line)
		if len(f) < 2 {
			continue
		}
		locale := f[len(f)-1]
		name := strings.Join(f[:len(f)-1], " ")
		voices = append(voices, Voice{Name: name, Locale: locale})
	}
	return voices
}
