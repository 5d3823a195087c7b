// Package referee owns the authoritative game: it spawns the children,
// asks the side to move for its play, re-validates every move against
// its own board, and relays applied moves to everyone else. Children
// are never trusted for legality, only for liveness.
package referee

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ccheck-game/ccheck/internal/supervisor"
	"github.com/ccheck-game/ccheck/internal/watch"
	"github.com/ccheck-game/ccheck/pkg/game"
	"github.com/ccheck-game/ccheck/pkg/proto"
)

var (
	// ErrIllegalMove is fatal: a child emitted a move the authoritative
	// board rejects. The game cannot meaningfully continue after it.
	ErrIllegalMove = errors.New("illegal move")
	// ErrChildExit marks a participant that died or went silent mid-game.
	ErrChildExit = errors.New("child failure")
	// ErrInterrupted is returned when the surrounding context is canceled.
	ErrInterrupted = errors.New("interrupted")
)

type Config struct {
	WhiteEngine bool
	BlackEngine bool
	Randomized  bool
	Verbose     bool
	NoDisplay   bool
	Tournament  bool

	AvgTime        time.Duration
	HistoryPath    string
	TranscriptPath string
	EnginePath     string
	DisplayPath    string
	WatchAddr      string

	AckRetries int
	AckBackoff time.Duration
	Grace      time.Duration

	Input  io.Reader
	Output io.Writer
}

type Referee struct {
	cfg Config
	log zerolog.Logger
	sup *supervisor.Supervisor

	board *game.Board
	tx    *Transcript
	hub   *watch.Hub

	engine  *participant
	display *participant
	sources [2]moveSource
	clocks  [2]time.Duration

	in  io.Reader
	out io.Writer
}

func New(cfg Config, log zerolog.Logger) *Referee {
	if cfg.AckRetries == 0 {
		cfg.AckRetries = 5
	}
	if cfg.AckBackoff == 0 {
		cfg.AckBackoff = 250 * time.Millisecond
	}
	if cfg.Grace == 0 {
		cfg.Grace = 3 * time.Second
	}
	var r = &Referee{
		cfg:   cfg,
		log:   log,
		sup:   supervisor.New(log),
		board: game.NewBoard(),
		in:    cfg.Input,
		out:   cfg.Output,
	}
	if r.in == nil {
		r.in = os.Stdin
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	return r
}

// Run plays one full game and tears everything down before returning.
// A nil error means the game ended on its own terms: a win, or the
// human closing their input.
func (r *Referee) Run(ctx context.Context) error {
	var ctxGame, cancel = context.WithCancel(ctx)
	defer cancel()
	defer r.sup.ShutdownAll(r.cfg.Grace)

	if r.cfg.TranscriptPath != "" {
		var tx, err = NewTranscript(r.cfg.TranscriptPath)
		if err != nil {
			return err
		}
		defer tx.Close()
		r.tx = tx
	}

	if !r.cfg.NoDisplay && !r.cfg.Tournament && r.cfg.DisplayPath != "" {
		var c, err = r.sup.Spawn(supervisor.RoleDisplay, r.cfg.DisplayPath)
		if err != nil {
			return err
		}
		r.display = newParticipant(c)
	}

	// Preload before spawning the engine: the engine reconstructs the
	// position from its own arguments, the replay is not for it.
	if r.cfg.HistoryPath != "" {
		if err := r.loadHistory(r.cfg.HistoryPath); err != nil {
			return err
		}
	}

	if r.cfg.WhiteEngine || r.cfg.BlackEngine {
		var args = []string{"-a", fmt.Sprintf("%g", r.cfg.AvgTime.Seconds())}
		if r.cfg.Randomized {
			args = append(args, "-r")
		}
		if r.cfg.Verbose {
			args = append(args, "-v")
		}
		if r.board.Ply() > 0 {
			args = append(args, "-s", r.board.Serialize())
		}
		var c, err = r.sup.Spawn(supervisor.RoleEngine, r.cfg.EnginePath, args...)
		if err != nil {
			return err
		}
		r.engine = newParticipant(c)
	}

	r.buildSources()

	var g *errgroup.Group
	if r.cfg.WatchAddr != "" {
		r.hub = watch.NewHub(r.log)
		g = new(errgroup.Group)
		var hub, addr = r.hub, r.cfg.WatchAddr
		g.Go(func() error {
			return hub.Run(ctxGame, addr)
		})
	}

	var err = r.runLoop(ctxGame)
	cancel()
	if g != nil {
		if werr := g.Wait(); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

// buildSources decides who answers for each side. One engine child can
// cover both sides; everything it does not cover falls to the display
// child or, failing that, the referee's own terminal.
func (r *Referee) buildSources() {
	var human moveSource
	if r.display != nil {
		human = &childSource{r: r, p: r.display}
	} else {
		human = newTerminalSource(r, r.in, r.cfg.Tournament)
	}
	for _, side := range []game.Side{game.White, game.Black} {
		if r.engineControls(side) {
			r.sources[side] = &childSource{r: r, p: r.engine}
		} else {
			r.sources[side] = human
		}
	}
}

func (r *Referee) engineControls(side game.Side) bool {
	if side == game.White {
		return r.cfg.WhiteEngine
	}
	return r.cfg.BlackEngine
}

func (r *Referee) runLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ErrInterrupted
		}
		if res := r.board.Result(); res != game.Ongoing {
			r.announce(res)
			return nil
		}
		var side = r.board.SideToMove()
		var src = r.sources[side]
		var start = time.Now()
		var m, err = src.request(ctx)
		if errors.Is(err, errEndOfInput) {
			r.log.Info().Int("plies", r.board.Ply()).Msg("input closed, game abandoned")
			return nil
		}
		if err != nil {
			return err
		}
		// The source already parsed against the live board, but the
		// board may only change through this one check.
		if !r.board.Legal(m) {
			return fmt.Errorf("%w: %v from %v", ErrIllegalMove, m, src.name())
		}
		r.clocks[side] += time.Since(start)
		var text = m.String()
		var fromDisplay = r.display != nil && !r.engineControls(side)
		if err := r.applyFrom(m, fromDisplay); err != nil {
			return err
		}
		if r.cfg.Tournament && r.engineControls(side) {
			fmt.Fprintf(r.out, "@@@%v:%v\n", side, text)
		}
		if r.engine != nil && !r.engineControls(side) {
			if err := r.notifyEngine(ctx, side, text); err != nil {
				return err
			}
		}
	}
}

func (r *Referee) apply(m game.Move) error {
	return r.applyFrom(m, false)
}

// applyFrom advances the authoritative board by one validated move and
// fans it out: display first (it renders the move against the position
// it was played from), then transcript, then observers.
func (r *Referee) applyFrom(m game.Move, fromDisplay bool) error {
	var side = r.board.SideToMove()
	var ply = r.board.Ply()
	var text = m.String()
	if r.display != nil && !fromDisplay {
		if err := r.display.child.Conn.WriteNotify(side, text); err != nil {
			return fmt.Errorf("%w: display notify: %v", ErrChildExit, err)
		}
		_ = r.display.child.Wake()
	}
	r.board.MakeMove(m)
	if err := r.tx.Record(ply, side, text); err != nil {
		return err
	}
	if r.hub != nil {
		r.hub.Broadcast(watch.Update{
			Ply:    ply,
			Side:   side.String(),
			Move:   text,
			Board:  r.board.Serialize(),
			Status: statusText(r.board.Result()),
		})
	}
	r.log.Debug().Int("ply", ply).Stringer("side", side).Str("move", text).Msg("applied")
	return nil
}

// notifyEngine tells the engine about a move it did not make and waits
// for the acknowledgement. The notification line is written once; if
// the ack does not arrive in time we re-deliver only the wake-up
// signal, since a busy engine may have missed it mid-computation.
func (r *Referee) notifyEngine(ctx context.Context, side game.Side, text string) error {
	if err := r.engine.child.Conn.WriteNotify(side, text); err != nil {
		return fmt.Errorf("%w: engine notify: %v", ErrChildExit, err)
	}
	for attempt := 0; attempt <= r.cfg.AckRetries; attempt++ {
		if attempt > 0 {
			r.log.Warn().Int("attempt", attempt).Msg("no ack yet, re-waking engine")
		}
		_ = r.engine.child.Wake()
		var timer = time.NewTimer(r.cfg.AckBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ErrInterrupted
		case rm := <-r.engine.msgs:
			timer.Stop()
			if rm.err != nil {
				return fmt.Errorf("%w: engine stream closed awaiting ack: %v",
					ErrChildExit, r.engine.child.ExitErr())
			}
			if rm.msg.Kind != proto.KindAck {
				return fmt.Errorf("%w: wanted ok, engine sent %v", proto.ErrProtocol, rm.msg.Kind)
			}
			return nil
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w: engine never acknowledged %v:%v", ErrChildExit, side, text)
}

func (r *Referee) announce(res game.Result) {
	var winner = game.White
	if res == game.BlackWins {
		winner = game.Black
	}
	fmt.Fprintf(r.out, "%v wins!\n", winner)
	r.log.Info().
		Stringer("winner", winner).
		Int("plies", r.board.Ply()).
		Dur("white_clock", r.clocks[game.White]).
		Dur("black_clock", r.clocks[game.Black]).
		Msg("game over")
}

func statusText(res game.Result) string {
	switch res {
	case game.WhiteWins:
		return "white wins"
	case game.BlackWins:
		return "black wins"
	}
	return "ongoing"
}
