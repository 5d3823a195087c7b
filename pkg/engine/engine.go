// Package engine holds the adversarial search primitive and the
// deadline-driven scheduler that turns it into a move source for the
// referee. The search is a plain fixed-depth negamax over a stack of
// board copies; iterative deepening, cancellation and the legal-move
// guarantee live above it.
package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/ccheck-game/ccheck/pkg/game"
)

type Engine struct {
	// Randomized shuffles the root move order so equal positions do not
	// always produce the same game.
	Randomized bool

	ctx      context.Context
	rnd      *rand.Rand
	mainLine mainLine
	start    time.Time
	nodes    int64
	stack    [stackSize]struct {
		board    game.Board
		moveList [game.MaxMoves]game.Move
		pv       pv
	}
}

type mainLine struct {
	moves []game.Move
	score int
	depth int
}

// Limits bounds one search invocation: a wall-clock budget, a depth cap,
// or neither (run until the context is canceled).
type Limits struct {
	MoveTime time.Duration
	Depth    int
}

type SearchParams struct {
	Board  *game.Board
	Limits Limits

	// StartDepth skips iterations a previous invocation already proved;
	// StartingMove seeds the root move order with its best move.
	StartDepth   int
	StartingMove game.Move

	Progress func(SearchInfo)
}

type SearchInfo struct {
	Depth    int
	Score    int
	MainLine []game.Move
	Nodes    int64
	Time     time.Duration
}

func NewEngine() *Engine {
	return &Engine{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Search runs iterative deepening from params.Board until the limits or
// the context stop it. The result always reflects the deepest fully
// completed iteration of this invocation; a half-finished depth is
// discarded. A zero Depth in the result means not even depth one
// completed and there is no usable candidate.
func (e *Engine) Search(ctx context.Context, params SearchParams) SearchInfo {
	e.start = time.Now()
	e.mainLine = mainLine{}
	e.nodes = 0

	ctx, cancel := armDeadline(ctx, params.Limits)
	defer cancel()
	e.ctx = ctx

	var root = &e.stack[0]
	root.board = *params.Board
	var ml = root.board.GenerateMoves(root.moveList[:])
	if len(ml) == 0 {
		return e.currentSearchResult()
	}
	if e.Randomized {
		e.rnd.Shuffle(len(ml), func(i, j int) {
			ml[i], ml[j] = ml[j], ml[i]
		})
	}
	if params.StartingMove != game.MoveEmpty {
		moveToBegin(ml, params.StartingMove)
	}

	var maxDepth = maxHeight
	if params.Limits.Depth > 0 && params.Limits.Depth < maxDepth {
		maxDepth = params.Limits.Depth
	}
	var startDepth = params.StartDepth
	if startDepth < 1 {
		startDepth = 1
	}

	for depth := startDepth; depth <= maxDepth; depth++ {
		var score, completed = e.searchDepth(ml, depth)
		if !completed {
			break
		}
		e.mainLine = mainLine{
			moves: e.stack[0].pv.toSlice(),
			score: score,
			depth: depth,
		}
		moveToBegin(ml, e.mainLine.moves[0])
		if params.Progress != nil {
			params.Progress(e.currentSearchResult())
		}
		if isDecided(score) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return e.currentSearchResult()
}

// searchDepth runs one full-width iteration; a deadline fires as a
// panic at the nearest node-count checkpoint and unwinds to here.
func (e *Engine) searchDepth(ml []game.Move, depth int) (score int, completed bool) {
	defer func() {
		if r := recover(); r != nil {
			if r == errSearchTimeout {
				completed = false
				return
			}
			panic(r)
		}
	}()
	return e.searchRoot(ml, depth), true
}

func (e *Engine) currentSearchResult() SearchInfo {
	return SearchInfo{
		Depth:    e.mainLine.depth,
		Score:    e.mainLine.score,
		MainLine: e.mainLine.moves,
		Nodes:    e.nodes,
		Time:     time.Since(e.start),
	}
}

func moveToBegin(ml []game.Move, m game.Move) {
	for i := range ml {
		if ml[i] == m {
			copy(ml[1:i+1], ml[:i])
			ml[0] = m
			return
		}
	}
}
