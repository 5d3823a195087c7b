package proto

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ccheck-game/ccheck/pkg/game"
)

func TestParse(t *testing.T) {
	var cases = []struct {
		line string
		want Message
	}{
		{"<", Message{Kind: KindRequest}},
		{"ok", Message{Kind: KindAck}},
		{">white:a1-b2", Message{Kind: KindNotify, Side: game.White, HasSide: true, Text: "a1-b2"}},
		{">black: d5-e6", Message{Kind: KindNotify, Side: game.Black, HasSide: true, Text: "d5-e6"}},
		{"a1-b2", Message{Kind: KindMove, Text: "a1-b2"}},
		{"white:a1-b2", Message{Kind: KindMove, Side: game.White, HasSide: true, Text: "a1-b2"}},
		{"black:c3-c4", Message{Kind: KindMove, Side: game.Black, HasSide: true, Text: "c3-c4"}},
	}
	for _, c := range cases {
		var got, err = Parse(c.line)
		if err != nil {
			t.Errorf("Parse(%q): %v", c.line, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %+v, want %+v", c.line, got, c.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, line := range []string{"", ">a1-b2", ">red:a1-b2", ">white"} {
		var _, err = Parse(line)
		if !errors.Is(err, ErrProtocol) {
			t.Errorf("Parse(%q) err = %v, want ErrProtocol", line, err)
		}
	}
}

func TestConnSkipsNoise(t *testing.T) {
	var in = strings.NewReader("\n# engine says hi\n<\nok\n")
	var c = NewConn(in, io.Discard)

	var m, err = c.ReadMessage()
	if err != nil || m.Kind != KindRequest {
		t.Fatalf("first message %+v %v", m, err)
	}
	m, err = c.ReadMessage()
	if err != nil || m.Kind != KindAck {
		t.Fatalf("second message %+v %v", m, err)
	}
	if _, err = c.ReadMessage(); err != io.EOF {
		t.Fatalf("want io.EOF at stream end, got %v", err)
	}
}

func TestConnWritesSingleLines(t *testing.T) {
	var sb = &strings.Builder{}
	var c = NewConn(strings.NewReader(""), sb)
	if err := c.WriteRequest(); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteNotify(game.White, "a1-b2"); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteMove(game.Black, "h8-g7"); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteAck(); err != nil {
		t.Fatal(err)
	}
	var want = "<\n>white:a1-b2\nblack:h8-g7\nok\n"
	if sb.String() != want {
		t.Fatalf("wire bytes %q, want %q", sb.String(), want)
	}
}
