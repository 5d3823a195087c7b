package game

import (
	"fmt"
	"strings"
)

// SquareName returns the coordinate name of sq, "a1" through "h8".
func SquareName(sq int) string {
	return string([]byte{byte('a' + File(sq)), byte('1' + Rank(sq))})
}

func ParseSquare(s string) (int, bool) {
	if len(s) != 2 {
		return 0, false
	}
	var file = int(s[0] - 'a')
	var rank = int(s[1] - '1')
	if file < 0 || file >= BoardWidth || rank < 0 || rank >= BoardWidth {
		return 0, false
	}
	return square(file, rank), true
}

func (m Move) String() string {
	if m == MoveEmpty {
		return "(none)"
	}
	return SquareName(m.From()) + "-" + SquareName(m.To())
}

// ParseMove decodes text like "a1-b2" and checks it against b. Only moves
// that are legal for the side to move decode successfully.
func ParseMove(b *Board, s string) (Move, bool) {
	var from, to, ok = splitMoveText(strings.TrimSpace(s))
	if !ok {
		return MoveEmpty, false
	}
	var m = NewMove(from, to)
	if !b.Legal(m) {
		return MoveEmpty, false
	}
	return m, true
}

func splitMoveText(s string) (from, to int, ok bool) {
	var parts = strings.Split(s, "-")
	if len(parts) != 2 {
		return 0, 0, false
	}
	from, ok = ParseSquare(parts[0])
	if !ok {
		return 0, 0, false
	}
	to, ok = ParseSquare(parts[1])
	return from, to, ok
}

// Serialize renders the position in a single line: eight rank strings from
// rank 8 down to rank 1, the side to move and the ply count.
func (b *Board) Serialize() string {
	var sb = &strings.Builder{}
	for rank := BoardWidth - 1; rank >= 0; rank-- {
		if rank < BoardWidth-1 {
			sb.WriteByte('/')
		}
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
	}
	fmt.Fprintf(sb, " %v %v", b.side, b.ply)
	return sb.String()
}

// FromSerial rebuilds a board from the Serialize format.
func FromSerial(s string) (*Board, error) {
	var fields = strings.Fields(s)
	if len(fields) != 3 {
		return nil, fmt.Errorf("bad board serial: %q", s)
	}
	var ranks = strings.Split(fields[0], "/")
	if len(ranks) != BoardWidth {
		return nil, fmt.Errorf("bad board serial: want %v ranks", BoardWidth)
	}
	var b = &Board{}
	for i, row := range ranks {
		if len(row) != BoardWidth {
			return nil, fmt.Errorf("bad rank %q", row)
		}
		var rank = BoardWidth - 1 - i
		for file := 0; file < BoardWidth; file++ {
			switch row[file] {
			case 'w':
				b.cells[square(file, rank)] = cellWhite
			case 'b':
				b.cells[square(file, rank)] = cellBlack
			case '.':
			default:
				return nil, fmt.Errorf("bad cell %q", row[file])
			}
		}
	}
	var side, ok = ParseSide(fields[1])
	if !ok {
		return nil, fmt.Errorf("bad side %q", fields[1])
	}
	b.side = side
	if _, err := fmt.Sscanf(fields[2], "%d", &b.ply); err != nil {
		return nil, fmt.Errorf("bad ply %q", fields[2])
	}
	return b, nil
}
