package game

import "testing"

func TestSquareNameRoundTrip(t *testing.T) {
	for sq := 0; sq < SquareCount; sq++ {
		var name = SquareName(sq)
		var parsed, ok = ParseSquare(name)
		if !ok || parsed != sq {
			t.Fatalf("square %v: name %q parsed to %v %v", sq, name, parsed, ok)
		}
	}
	if _, ok := ParseSquare("i1"); ok {
		t.Error("accepted file i")
	}
	if _, ok := ParseSquare("a9"); ok {
		t.Error("accepted rank 9")
	}
}

func TestMoveTextRoundTrip(t *testing.T) {
	var b = NewBoard()
	var buf [MaxMoves]Move
	for _, m := range b.GenerateMoves(buf[:]) {
		var parsed, ok = ParseMove(b, m.String())
		if !ok {
			t.Fatalf("move %v did not parse back", m)
		}
		if parsed != m {
			t.Fatalf("round trip: %v != %v", parsed, m)
		}
	}
}

func TestParseMoveRejectsIllegal(t *testing.T) {
	var b = NewBoard()
	var cases = []string{"", "a1", "a1-a1", "a1-h8", "h8-g7", "junk", "a1xb2"}
	for _, s := range cases {
		if _, ok := ParseMove(b, s); ok {
			t.Errorf("accepted %q", s)
		}
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	var b = NewBoard()
	var buf [MaxMoves]Move
	for i := 0; i < 6; i++ {
		b.MakeMove(b.GenerateMoves(buf[:])[0])
	}
	var c, err = FromSerial(b.Serialize())
	if err != nil {
		t.Fatal(err)
	}
	if c.Serialize() != b.Serialize() {
		t.Fatalf("round trip mismatch:\n%v\n%v", b.Serialize(), c.Serialize())
	}
	if c.SideToMove() != b.SideToMove() || c.Ply() != b.Ply() {
		t.Error("side or ply lost")
	}
}
