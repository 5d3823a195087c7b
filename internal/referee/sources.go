package referee

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ccheck-game/ccheck/internal/supervisor"
	"github.com/ccheck-game/ccheck/pkg/game"
	"github.com/ccheck-game/ccheck/pkg/proto"
)

// errEndOfInput is the interactive sentinel: the human closed their
// input, the game ends without a winner.
var errEndOfInput = errors.New("end of input")

type recv struct {
	msg proto.Message
	err error
}

// participant pairs a child with a reader goroutine, so the referee can
// wait for a reply with a timeout or a context instead of blocking on
// the pipe directly.
type participant struct {
	child *supervisor.Child
	msgs  chan recv
}

func newParticipant(c *supervisor.Child) *participant {
	var p = &participant{child: c, msgs: make(chan recv, 1)}
	go func() {
		for {
			var msg, err = c.Conn.ReadMessage()
			p.msgs <- recv{msg: msg, err: err}
			if err != nil {
				return
			}
		}
	}()
	return p
}

// moveSource produces the next move for the side to play. The referee
// re-validates whatever comes back; a source is trusted for liveness,
// never for legality.
type moveSource interface {
	request(ctx context.Context) (game.Move, error)
	name() string
}

// childSource asks a spawned participant over its pipe: request line,
// wake-up signal, then wait for the single move reply.
type childSource struct {
	r *Referee
	p *participant
}

func (c *childSource) name() string {
	return c.p.child.Role.String()
}

func (c *childSource) request(ctx context.Context) (game.Move, error) {
	if err := c.p.child.Conn.WriteRequest(); err != nil {
		return game.MoveEmpty, fmt.Errorf("%w: %v request: %v", ErrChildExit, c.name(), err)
	}
	if err := c.p.child.Wake(); err != nil {
		return game.MoveEmpty, fmt.Errorf("%w: cannot wake %v: %v", ErrChildExit, c.name(), err)
	}
	select {
	case <-ctx.Done():
		return game.MoveEmpty, ErrInterrupted
	case rm := <-c.p.msgs:
		if rm.err != nil {
			// The child owed us a move; losing its stream here is fatal
			// however it happened. Wait briefly for the exit so the
			// diagnostic carries the real status, not just a pipe error.
			if c.p.child.WaitExit(2 * time.Second) {
				if exit := c.p.child.ExitErr(); exit != nil {
					return game.MoveEmpty, fmt.Errorf("%w: %v died during request: %v",
						ErrChildExit, c.name(), exit)
				}
				return game.MoveEmpty, fmt.Errorf("%w: %v exited instead of answering",
					ErrChildExit, c.name())
			}
			return game.MoveEmpty, fmt.Errorf("%w: %v stream closed during request: %v",
				ErrChildExit, c.name(), rm.err)
		}
		if rm.msg.Kind != proto.KindMove {
			return game.MoveEmpty, fmt.Errorf("%w: %v answered a request with %v",
				proto.ErrProtocol, c.name(), rm.msg.Kind)
		}
		var side = c.r.board.SideToMove()
		if rm.msg.HasSide && rm.msg.Side != side {
			return game.MoveEmpty, fmt.Errorf("%w: %v moved for %v on %v's turn",
				proto.ErrProtocol, c.name(), rm.msg.Side, side)
		}
		var m, ok = game.ParseMove(c.r.board, rm.msg.Text)
		if !ok {
			return game.MoveEmpty, fmt.Errorf("%w: %v played %q", ErrIllegalMove, c.name(), rm.msg.Text)
		}
		return m, nil
	}
}

// terminalSource reads moves typed at the referee's own terminal. Bad
// input is re-prompted rather than fatal; people typo, children do not.
// A pump goroutine owns the actual read, so a termination request during
// a human turn does not wait for the next keystroke.
type terminalSource struct {
	r     *Referee
	quiet bool // tournament drivers want bare moves, no prompts

	lines   chan string
	readErr error // set before lines is closed
}

func newTerminalSource(r *Referee, in io.Reader, quiet bool) *terminalSource {
	var t = &terminalSource{r: r, quiet: quiet, lines: make(chan string)}
	go func() {
		var scanner = bufio.NewScanner(in)
		for scanner.Scan() {
			t.lines <- scanner.Text()
		}
		t.readErr = scanner.Err()
		close(t.lines)
	}()
	return t
}

func (t *terminalSource) name() string {
	return "terminal"
}

func (t *terminalSource) request(ctx context.Context) (game.Move, error) {
	for {
		if !t.quiet {
			fmt.Fprintf(t.r.out, "%v\n%v> ", t.r.board, t.r.board.SideToMove())
		}
		select {
		case <-ctx.Done():
			return game.MoveEmpty, ErrInterrupted
		case line, open := <-t.lines:
			if !open {
				if t.readErr != nil {
					return game.MoveEmpty, t.readErr
				}
				return game.MoveEmpty, errEndOfInput
			}
			if line == "" {
				continue
			}
			if m, ok := game.ParseMove(t.r.board, line); ok {
				return m, nil
			}
			if t.quiet {
				return game.MoveEmpty, fmt.Errorf("%w: driver sent %q", ErrIllegalMove, line)
			}
			fmt.Fprintf(t.r.out, "illegal move %q, try again\n", line)
		}
	}
}
