package game

import "strings"

const (
	BoardWidth  = 8
	SquareCount = BoardWidth * BoardWidth
	CampSize    = 10

	// MaxMoves bounds the move list of any position: ten pieces, at most
	// eight steps and eight jumps each.
	MaxMoves = 192
)

const (
	cellEmpty = iota
	cellWhite
	cellBlack
)

// Result classifies a position.
type Result uint8

const (
	Ongoing Result = iota
	WhiteWins
	BlackWins
)

// Board is halma on an 8x8 grid. White starts in the triangular camp
// around a1 and wins by filling the mirror camp around h8; Black the
// reverse. A move is a step to an adjacent empty square or a jump over
// one adjacent piece of either color to the empty square directly beyond.
type Board struct {
	cells [SquareCount]uint8
	side  Side
	ply   int
}

func File(sq int) int { return sq & 7 }
func Rank(sq int) int { return sq >> 3 }

func square(file, rank int) int { return rank<<3 | file }

// inCamp reports whether sq belongs to the ten-square corner camp of s:
// file+rank <= 3 for White, file+rank >= 11 for Black.
func inCamp(sq int, s Side) bool {
	if s == White {
		return File(sq)+Rank(sq) <= 3
	}
	return File(sq)+Rank(sq) >= 11
}

func NewBoard() *Board {
	var b = &Board{}
	for sq := 0; sq < SquareCount; sq++ {
		if inCamp(sq, White) {
			b.cells[sq] = cellWhite
		} else if inCamp(sq, Black) {
			b.cells[sq] = cellBlack
		}
	}
	return b
}

func (b *Board) Clone() *Board {
	var c = *b
	return &c
}

func (b *Board) SideToMove() Side { return b.side }

// Ply is the number of moves applied so far, counting from zero.
func (b *Board) Ply() int { return b.ply }

// Occupant reports which side, if any, has a piece on sq.
func (b *Board) Occupant(sq int) (Side, bool) {
	switch b.cells[sq] {
	case cellWhite:
		return White, true
	case cellBlack:
		return Black, true
	}
	return White, false
}

var directions = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// Legal reports whether m is playable by the side to move.
func (b *Board) Legal(m Move) bool {
	if m == MoveEmpty {
		return false
	}
	var from, to = m.From(), m.To()
	if from < 0 || from >= SquareCount || to < 0 || to >= SquareCount {
		return false
	}
	if b.cells[from] != pieceOf(b.side) || b.cells[to] != cellEmpty {
		return false
	}
	var df = File(to) - File(from)
	var dr = Rank(to) - Rank(from)
	for _, d := range directions {
		if df == d[0] && dr == d[1] {
			return true
		}
		if df == 2*d[0] && dr == 2*d[1] {
			var over = square(File(from)+d[0], Rank(from)+d[1])
			return b.cells[over] != cellEmpty
		}
	}
	return false
}

// GenerateMoves fills buf with every legal move for the side to move.
func (b *Board) GenerateMoves(buf []Move) []Move {
	var count = 0
	var piece = pieceOf(b.side)
	for from := 0; from < SquareCount; from++ {
		if b.cells[from] != piece {
			continue
		}
		var f, r = File(from), Rank(from)
		for _, d := range directions {
			var nf, nr = f + d[0], r + d[1]
			if nf < 0 || nf >= BoardWidth || nr < 0 || nr >= BoardWidth {
				continue
			}
			var step = square(nf, nr)
			if b.cells[step] == cellEmpty {
				buf[count] = NewMove(from, step)
				count++
				continue
			}
			var jf, jr = f + 2*d[0], r + 2*d[1]
			if jf < 0 || jf >= BoardWidth || jr < 0 || jr >= BoardWidth {
				continue
			}
			var land = square(jf, jr)
			if b.cells[land] == cellEmpty {
				buf[count] = NewMove(from, land)
				count++
			}
		}
	}
	return buf[:count]
}

// MakeMove applies m without checking legality; callers validate first.
func (b *Board) MakeMove(m Move) {
	b.cells[m.To()] = b.cells[m.From()]
	b.cells[m.From()] = cellEmpty
	b.side = b.side.Opposite()
	b.ply++
}

// Result reports whether either side has filled the opposing camp.
func (b *Board) Result() Result {
	var whiteDone, blackDone = true, true
	for sq := 0; sq < SquareCount; sq++ {
		if inCamp(sq, Black) && b.cells[sq] != cellWhite {
			whiteDone = false
		}
		if inCamp(sq, White) && b.cells[sq] != cellBlack {
			blackDone = false
		}
	}
	if whiteDone {
		return WhiteWins
	}
	if blackDone {
		return BlackWins
	}
	return Ongoing
}

func pieceOf(s Side) uint8 {
	if s == White {
		return cellWhite
	}
	return cellBlack
}

func (b *Board) String() string {
	var sb = &strings.Builder{}
	for rank := BoardWidth - 1; rank >= 0; rank-- {
		for file := 0; file < BoardWidth; file++ {
			switch b.cells[square(file, rank)] {
			case cellWhite:
				sb.WriteByte('w')
			case cellBlack:
				sb.WriteByte('b')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
