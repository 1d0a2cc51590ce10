// Package localtts drives on-device speech engines (espeak-ng, macOS say) and
// audio players as subprocesses.
package localtts

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
)

// Process is a running speech or playback subprocess.
type Process struct {
	cmd      *exec.Cmd
	done     chan struct{}
	err      error
	stopped  atomic.Bool
	stopOnce sync.Once
}

// Start launches cmd and tracks it until exit.
func Start(cmd *exec.Cmd) (*Process, error) {
	if err := cmd.Start(); err != nil {
		return nil, eris.Wrapf(err, "localtts: start %s", cmd.Path)
	}
	p := &Process{cmd: cmd, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		if err != nil && !p.stopped.Load() {
			p.err = eris.Wrapf(err, "localtts: %s exited", cmd.Path)
		}
		close(p.done)
	}()
	return p, nil
}

// Stop kills the process. It is safe to call more than once and after the
// process has exited.
func (p *Process) Stop() error {
	var err error
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		select {
		case <-p.done:
			return
		default:
		}
		if kerr := p.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			err = eris.Wrap(kerr, "localtts: kill")
		}
	})
	return err
}

// Done is closed when the process exits.
func (p *Process) Done() <-chan struct{} { return p.done }

// Err returns the exit error once Done is closed. A stopped process reports nil.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}
