package game

// Side identifies one of the two players. White owns the camp around a1
// and races toward h8; Black races the other way. White moves first.
type Side uint8

const (
	White Side = iota
	Black
)

func (s Side) Opposite() Side {
	return s ^ 1
}

func (s Side) String() string {
	if s == White {
		return "white"
	}
	return "black"
}

// ParseSide recognizes the side labels used on the wire.
func ParseSide(s string) (Side, bool) {
	switch s {
	case "white":
		return White, true
	case "black":
		return Black, true
	}
	return White, false
}

// Move encodes an origin and a destination square. The zero value is
// reserved: it means "no move" and must never reach a board.
type Move uint16

const MoveEmpty Move = 0

func NewMove(from, to int) Move {
	return Move(1 + (from<<6 | to))
}

func (m Move) From() int {
	return int(m-1) >> 6 & 63
}

func (m Move) To() int {
	return int(m-1) & 63
}
