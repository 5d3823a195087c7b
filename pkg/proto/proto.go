// Package proto implements the line-oriented handshake spoken between the
// referee and its child processes.
//
// One logical exchange is in flight at a time:
//
//	<              request: "send me your move now"
//	>side:move     notify: apply this move, reply with an acknowledgement
//	[side:]move    the reply to a request
//	ok             the acknowledgement of a notify
//
// Lines starting with '#' are diagnostic noise and are skipped. Anything
// else that does not match the grammar is a protocol violation. Because a
// peer may be blocked inside a computation rather than on its pipe, every
// request or notify is paired with an out-of-band wake-up signal; the
// signal carries no data.
package proto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ccheck-game/ccheck/pkg/game"
)

// ErrProtocol marks any malformed or unexpected line on the wire.
var ErrProtocol = errors.New("protocol violation")

type Kind uint8

const (
	KindRequest Kind = iota + 1
	KindNotify
	KindMove
	KindAck
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotify:
		return "notify"
	case KindMove:
		return "move"
	case KindAck:
		return "ack"
	}
	return "unknown"
}

// Message is one decoded protocol line. Side is meaningful for notifies
// and for move replies that carry a side label.
type Message struct {
	Kind    Kind
	Side    game.Side
	HasSide bool
	Text    string
}

// Parse decodes a single line. Move text is not validated here; only the
// owning board can judge it, so that stays with the caller.
func Parse(line string) (Message, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "<":
		return Message{Kind: KindRequest}, nil
	case line == "ok":
		return Message{Kind: KindAck}, nil
	case strings.HasPrefix(line, ">"):
		var side, text, ok = splitSided(line[1:])
		if !ok {
			return Message{}, fmt.Errorf("%w: bad notify %q", ErrProtocol, line)
		}
		return Message{Kind: KindNotify, Side: side, HasSide: true, Text: text}, nil
	case line == "":
		return Message{}, fmt.Errorf("%w: empty line", ErrProtocol)
	default:
		if side, text, ok := splitSided(line); ok {
			return Message{Kind: KindMove, Side: side, HasSide: true, Text: text}, nil
		}
		return Message{Kind: KindMove, Text: line}, nil
	}
}

func splitSided(s string) (game.Side, string, bool) {
	var label, rest, found = strings.Cut(s, ":")
	if !found {
		return game.White, "", false
	}
	var side, ok = game.ParseSide(label)
	if !ok {
		return game.White, "", false
	}
	return side, strings.TrimSpace(rest), true
}
