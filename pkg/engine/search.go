package engine

import (
	"errors"

	"github.com/ccheck-game/ccheck/pkg/game"
)

const (
	valueInfinity = 30000
	valueWin      = 29000
	maxHeight     = 40
	stackSize     = maxHeight + 2

	// Cancellation checkpoint granularity inside the search.
	checkpointMask = 255
)

var errSearchTimeout = errors.New("search timeout")

func winIn(height int) int  { return valueWin - height }
func lossIn(height int) int { return -valueWin + height }

// isDecided reports a proven win or loss score.
func isDecided(score int) bool {
	return score >= valueWin-maxHeight || score <= -(valueWin - maxHeight)
}

func (e *Engine) searchRoot(ml []game.Move, depth int) int {
	var s = &e.stack[0]
	var alpha = -valueInfinity
	s.pv.clear()
	for _, m := range ml {
		var child = &e.stack[1]
		child.board = s.board
		child.board.MakeMove(m)
		var score = -e.alphaBeta(-valueInfinity, -alpha, depth-1, 1)
		if score > alpha {
			alpha = score
			s.pv.assign(m, &child.pv)
		}
	}
	return alpha
}

func (e *Engine) alphaBeta(alpha, beta, depth, height int) int {
	e.incNodes()

	var s = &e.stack[height]
	var b = &s.board

	// The mover that filled a camp is the side no longer on move.
	switch b.Result() {
	case game.WhiteWins:
		if b.SideToMove() == game.White {
			return winIn(height)
		}
		return lossIn(height)
	case game.BlackWins:
		if b.SideToMove() == game.Black {
			return winIn(height)
		}
		return lossIn(height)
	}

	if depth <= 0 || height >= maxHeight {
		return evaluate(b)
	}
	s.pv.clear()

	var ml = b.GenerateMoves(s.moveList[:])
	if len(ml) == 0 {
		// Jammed: the side to move cannot play and loses.
		return lossIn(height)
	}

	var best = -valueInfinity
	for _, m := range ml {
		var child = &e.stack[height+1]
		child.board = *b
		child.board.MakeMove(m)
		var score = -e.alphaBeta(-beta, -alpha, depth-1, height+1)
		if score > best {
			best = score
			if score > alpha {
				alpha = score
				s.pv.assign(m, &child.pv)
				if alpha >= beta {
					break
				}
			}
		}
	}
	return best
}

func (e *Engine) incNodes() {
	e.nodes++
	if e.nodes&checkpointMask == 0 && e.ctx.Err() != nil {
		panic(errSearchTimeout)
	}
}

// evaluate scores b for the side to move: the opponent's total distance to
// its target camp minus ours. Chebyshev distance dominates; the Manhattan
// remainder breaks plateaus so pieces keep walking the diagonal.
func evaluate(b *game.Board) int {
	var score = 0
	for sq := 0; sq < game.SquareCount; sq++ {
		var side, occupied = b.Occupant(sq)
		if !occupied {
			continue
		}
		if side == game.White {
			score -= pieceDistance(sq, side)
		} else {
			score += pieceDistance(sq, side)
		}
	}
	if b.SideToMove() == game.Black {
		score = -score
	}
	return score
}

func pieceDistance(sq int, s game.Side) int {
	var f, r = game.File(sq), game.Rank(sq)
	if s == game.White {
		f, r = game.BoardWidth-1-f, game.BoardWidth-1-r
	}
	var cheb = f
	if r > cheb {
		cheb = r
	}
	return 16*cheb + f + r
}

type pv struct {
	items [stackSize]game.Move
	size  int
}

func (pv *pv) clear() {
	pv.size = 0
}

func (pv *pv) assign(m game.Move, child *pv) {
	pv.size = 1
	pv.items[0] = m
	if child.size > 0 {
		pv.size += child.size
		copy(pv.items[1:], child.items[:child.size])
	}
}

func (pv *pv) toSlice() []game.Move {
	var result = make([]game.Move, pv.size)
	copy(result, pv.items[:pv.size])
	return result
}
