package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ccheck-game/ccheck/pkg/game"
	"github.com/ccheck-game/ccheck/pkg/proto"
)

// ErrNoLegalMove is returned when the side to move has nothing to play.
// The scheduler fails with it instead of ever writing the sentinel or an
// illegal move as the answer to a request.
var ErrNoLegalMove = errors.New("no legal move")

// Depth cap when no time budget is configured.
const defaultDepthLimit = 4

// Scheduler owns the engine side of the protocol: it mirrors the
// authoritative board, answers move requests within a computed deadline,
// applies opponent notifications, and spends idle time deepening the
// next reply. All state is confined to the Run goroutine; incoming lines
// and cancellation arrive as events.
type Scheduler struct {
	// Ponder enables opportunistic deepening on the opponent's time.
	Ponder bool
	// Verbose logs per-depth search statistics.
	Verbose bool

	eng      *Engine
	conn     *proto.Conn
	log      zerolog.Logger
	board    *game.Board
	avgTime  time.Duration
	consumed [2]time.Duration

	// best is the deepest known line rooted at the current position,
	// carried across invocations and shifted when predictions hold.
	best        mainLine
	ponderArmed bool
}

func NewScheduler(eng *Engine, conn *proto.Conn, avgTime time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		eng:     eng,
		conn:    conn,
		log:     log,
		board:   game.NewBoard(),
		avgTime: avgTime,
	}
}

// SetBoard replaces the mirrored position, for resuming a game in
// progress. Call before Run; it discards any kept variation.
func (s *Scheduler) SetBoard(b *game.Board) {
	s.board = b
	s.best = mainLine{}
	s.ponderArmed = false
}

type recv struct {
	msg proto.Message
	err error
}

// Run services the referee until the stream closes (a clean end), the
// context is canceled, or a fatal condition surfaces. Strict alternation
// is the referee's obligation; the scheduler handles one message at a
// time and never reads ahead.
func (s *Scheduler) Run(ctx context.Context) error {
	var msgs = make(chan recv)
	go func() {
		for {
			var m, err = s.conn.ReadMessage()
			if err != nil {
				msgs <- recv{err: err}
				return
			}
			msgs <- recv{msg: m}
		}
	}()

	for {
		var r recv
		if s.canPonder() {
			r = s.ponderUntilMessage(ctx, msgs)
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case r = <-msgs:
			}
		}
		if r.err != nil {
			if errors.Is(r.err, io.EOF) {
				// Closed stream is the sentinel: end of game.
				return nil
			}
			return r.err
		}
		switch r.msg.Kind {
		case proto.KindRequest:
			if err := s.onRequest(ctx); err != nil {
				return err
			}
		case proto.KindNotify:
			if err := s.onNotify(r.msg); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unexpected %v from referee", proto.ErrProtocol, r.msg.Kind)
		}
	}
}

func (s *Scheduler) canPonder() bool {
	return s.Ponder && s.ponderArmed &&
		s.board.Result() == game.Ongoing &&
		s.best.depth < maxHeight && !isDecided(s.best.score)
}

// ponderUntilMessage deepens on idle time. The arrival of any message
// cancels the in-flight iteration; completed iterations are kept and
// shorten the next request.
func (s *Scheduler) ponderUntilMessage(ctx context.Context, msgs <-chan recv) recv {
	var pctx, cancel = context.WithCancel(ctx)
	defer cancel()

	var got = make(chan recv, 1)
	go func() {
		var r = <-msgs
		got <- r
		cancel()
	}()

	s.deepen(pctx, Limits{})

	select {
	case r := <-got:
		return r
	case <-ctx.Done():
		return recv{err: ctx.Err()}
	}
}

// deepen continues iterative deepening from the best known line and
// keeps whatever completed.
func (s *Scheduler) deepen(ctx context.Context, limits Limits) {
	var params = SearchParams{
		Board:      s.board,
		Limits:     limits,
		StartDepth: s.best.depth + 1,
	}
	if len(s.best.moves) > 0 {
		params.StartingMove = s.best.moves[0]
	}
	if s.Verbose {
		params.Progress = s.logProgress
	}
	var res = s.eng.Search(ctx, params)
	if res.Depth > s.best.depth {
		s.best = mainLine{moves: res.MainLine, score: res.Score, depth: res.Depth}
	}
}

func (s *Scheduler) onRequest(ctx context.Context) error {
	var side = s.board.SideToMove()
	var start = time.Now()

	var limits Limits
	if s.avgTime > 0 {
		limits.MoveTime = MoveBudget(s.avgTime, s.board.Ply(), s.consumed[side])
	} else {
		limits.Depth = defaultDepthLimit
	}
	s.deepen(ctx, limits)

	if len(s.best.moves) == 0 {
		// Interrupted before any depth completed: one minimal pass that
		// nothing can cancel, purely to produce some legal move.
		var res = s.eng.Search(context.Background(), SearchParams{
			Board:  s.board,
			Limits: Limits{Depth: 1},
		})
		if res.Depth > 0 {
			s.best = mainLine{moves: res.MainLine, score: res.Score, depth: res.Depth}
		}
	}
	if len(s.best.moves) == 0 {
		return fmt.Errorf("%w for %v", ErrNoLegalMove, side)
	}

	var m = s.best.moves[0]
	if m == game.MoveEmpty || !s.board.Legal(m) {
		return fmt.Errorf("search produced unplayable candidate %v", m)
	}
	s.consumed[side] += time.Since(start)

	// Format against the pre-move board, emit, then apply. Cancellation
	// is already resolved here: nothing can interleave with this line.
	var text = m.String()
	if err := s.conn.WriteMove(side, text); err != nil {
		return err
	}
	s.log.Debug().
		Str("side", side.String()).
		Str("move", text).
		Int("depth", s.best.depth).
		Int("score", s.best.score).
		Dur("elapsed", time.Since(start)).
		Msg("move emitted")

	s.board.MakeMove(m)
	s.shiftBest(m)
	s.ponderArmed = false
	return nil
}

func (s *Scheduler) onNotify(msg proto.Message) error {
	if msg.Side != s.board.SideToMove() {
		return fmt.Errorf("%w: notify for %v out of turn", proto.ErrProtocol, msg.Side)
	}
	var m, ok = game.ParseMove(s.board, msg.Text)
	if !ok {
		return fmt.Errorf("%w: bad notify move %q", proto.ErrProtocol, msg.Text)
	}
	s.board.MakeMove(m)
	s.shiftBest(m)
	if err := s.conn.WriteAck(); err != nil {
		return err
	}
	s.ponderArmed = true
	return nil
}

// shiftBest advances the kept variation past a move that was just applied
// to the board. A matching head keeps the tail as a head start for the
// next search; any mismatch discards the stale line.
func (s *Scheduler) shiftBest(m game.Move) {
	if len(s.best.moves) > 1 && s.best.moves[0] == m {
		s.best = mainLine{
			moves: s.best.moves[1:],
			score: -s.best.score,
			depth: s.best.depth - 1,
		}
		return
	}
	s.best = mainLine{}
}

func (s *Scheduler) logProgress(si SearchInfo) {
	var line = make([]string, 0, len(si.MainLine))
	for _, m := range si.MainLine {
		line = append(line, m.String())
	}
	s.log.Debug().
		Int("depth", si.Depth).
		Int("score", si.Score).
		Int64("nodes", si.Nodes).
		Dur("time", si.Time).
		Strs("pv", line).
		Msg("depth complete")
}
