// Package supervisor spawns and tears down the referee's child
// processes. Each child gets a private duplex byte stream (its stdin and
// stdout pipes); stderr passes through so diagnostics stay visible. The
// wake-up signal paired with every protocol request is SIGHUP: it
// carries no data, it only tells a child that may be deep inside a
// computation to check its input.
package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ccheck-game/ccheck/pkg/proto"
)

// ErrSpawn marks a failed process or pipe creation.
var ErrSpawn = errors.New("spawn failure")

type Role uint8

const (
	RoleEngine Role = iota
	RoleDisplay
)

func (r Role) String() string {
	if r == RoleEngine {
		return "engine"
	}
	return "display"
}

// Child is one spawned participant. Conn frames the protocol over the
// child's pipes; exit status is collected by a waiter goroutine and
// published through done.
type Child struct {
	Role Role
	Conn *proto.Conn

	cmd  *exec.Cmd
	done chan struct{}
	err  error
	log  zerolog.Logger
}

type Supervisor struct {
	log zerolog.Logger

	mu       sync.Mutex
	children []*Child
}

func New(log zerolog.Logger) *Supervisor {
	return &Supervisor{log: log}
}

// Spawn starts path with its own stdin/stdout pipes wired to a protocol
// connection. Any failure is an ErrSpawn; the caller aborts on it.
func (s *Supervisor) Spawn(role Role, path string, args ...string) (*Child, error) {
	var cmd = exec.Command(path, args...)
	cmd.Stderr = os.Stderr

	var stdin, err = cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v stdin: %v", ErrSpawn, role, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v stdout: %v", ErrSpawn, role, err)
	}
	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v %q: %v", ErrSpawn, role, path, err)
	}

	var c = &Child{
		Role: role,
		Conn: proto.NewConn(stdout, stdin),
		cmd:  cmd,
		done: make(chan struct{}),
		log:  s.log.With().Stringer("role", role).Int("pid", cmd.Process.Pid).Logger(),
	}
	go func() {
		c.err = cmd.Wait()
		close(c.done)
	}()
	c.log.Info().Str("path", path).Msg("child started")

	s.mu.Lock()
	s.children = append(s.children, c)
	s.mu.Unlock()
	return c, nil
}

// Wake delivers the asynchronous "check your input now" signal.
func (c *Child) Wake() error {
	return c.cmd.Process.Signal(syscall.SIGHUP)
}

func (c *Child) Pid() int {
	return c.cmd.Process.Pid
}

// Exited reports whether the child's exit has been observed.
func (c *Child) Exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// ExitErr is the recorded exit status; only meaningful once Exited.
func (c *Child) ExitErr() error {
	return c.err
}

// WaitExit blocks until the child's exit is observed or the timeout
// lapses. A child whose pipe just closed usually exits moments later;
// this lets callers report the real status instead of a pipe error.
func (c *Child) WaitExit(timeout time.Duration) bool {
	var timer = time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-c.done:
		return true
	case <-timer.C:
		return false
	}
}

// Shutdown asks a child to terminate, waits out the grace period, and
// force-kills if it is still alive.
func (s *Supervisor) Shutdown(c *Child, grace time.Duration) error {
	select {
	case <-c.done:
		s.logExit(c)
		return nil
	default:
	}
	if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		c.log.Warn().Err(err).Msg("terminate request failed")
	}
	var timer = time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-c.done:
	case <-timer.C:
		c.log.Warn().Dur("grace", grace).Msg("grace period expired, killing")
		_ = c.cmd.Process.Kill()
		<-c.done
	}
	s.logExit(c)
	return nil
}

// ShutdownAll tears down every tracked child in parallel and drains all
// exit notifications, so no zombie state survives the supervisor.
func (s *Supervisor) ShutdownAll(grace time.Duration) error {
	s.mu.Lock()
	var children = make([]*Child, len(s.children))
	copy(children, s.children)
	s.children = s.children[:0]
	s.mu.Unlock()

	var g errgroup.Group
	for _, c := range children {
		var c = c
		g.Go(func() error {
			return s.Shutdown(c, grace)
		})
	}
	return g.Wait()
}

// Reap is a non-blocking sweep: it logs and forgets children whose exit
// has already been observed.
func (s *Supervisor) Reap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var alive = s.children[:0]
	for _, c := range s.children {
		if c.Exited() {
			s.logExit(c)
			continue
		}
		alive = append(alive, c)
	}
	s.children = alive
}

func (s *Supervisor) logExit(c *Child) {
	if c.err != nil {
		c.log.Info().Err(c.err).Msg("child exited")
		return
	}
	c.log.Info().Msg("child exited cleanly")
}
