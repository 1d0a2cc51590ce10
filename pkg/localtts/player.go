package localtts

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/rotisserie/eris"
)

// Player pipes encoded audio into a command-line player reading stdin.
type Player struct {
	Binary string
	Args   []string
}

// NewPlayer returns a Player for binary. ffplay and mpg123 get their stdin
// arguments by default.
func NewPlayer(binary string, args ...string) *Player {
	if binary == "" {
		binary = "ffplay"
	}
	if len(args) == 0 {
		switch binary {
		case "ffplay":
			args = []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-i", "-"}
		case "mpg123":
			args = []string{"-q", "-"}
		}
	}
	return &Player{Binary: binary, Args: args}
}

// Play starts playing audio.
func (p *Player) Play(ctx context.Context, audio []byte) (*Process, error) {
	if len(audio) == 0 {
		return nil, eris.New("localtts: no audio to play")
	}
	cmd := exec.CommandContext(ctx, p.Binary, p.Args...)
	cmd.Stdin = bytes.NewReader(audio)
	return Start(cmd)
}
