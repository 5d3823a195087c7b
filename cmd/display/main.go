package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ccheck-game/ccheck/pkg/game"
	"github.com/ccheck-game/ccheck/pkg/proto"
)

// A plain-text display child: protocol on stdin/stdout, board rendering
// and move entry on the controlling terminal. The referee's pipes stay
// clean of anything but protocol lines.

func main() {
	var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Str("prog", "ccheck-display").Logger()

	var wake = make(chan os.Signal, 1)
	signal.Notify(wake, syscall.SIGHUP)

	var tty, err = os.Open("/dev/tty")
	if err != nil {
		log.Warn().Err(err).Msg("no controlling terminal, move entry disabled")
	}
	var input *bufio.Scanner
	if tty != nil {
		defer tty.Close()
		input = bufio.NewScanner(tty)
	}

	var board = game.NewBoard()
	var conn = proto.NewConn(os.Stdin, os.Stdout)
	render(board)

	for {
		var msg, err = conn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			log.Error().Err(err).Msg("protocol read failed")
			os.Exit(1)
		}
		switch msg.Kind {
		case proto.KindRequest:
			var m = readMove(board, input)
			if m == game.MoveEmpty {
				log.Error().Msg("no move available for request")
				os.Exit(1)
			}
			if err := conn.WriteMove(board.SideToMove(), m.String()); err != nil {
				log.Error().Err(err).Msg("reply failed")
				os.Exit(1)
			}
			board.MakeMove(m)
			render(board)
		case proto.KindNotify:
			if msg.Side != board.SideToMove() {
				log.Error().Stringer("side", msg.Side).Msg("notify out of turn")
				os.Exit(1)
			}
			var m, ok = game.ParseMove(board, msg.Text)
			if !ok {
				log.Error().Str("move", msg.Text).Msg("unplayable notify")
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "%v plays %v\n", msg.Side, msg.Text)
			board.MakeMove(m)
			render(board)
		default:
			log.Error().Stringer("kind", msg.Kind).Msg("unexpected message")
			os.Exit(1)
		}
		if res := board.Result(); res != game.Ongoing {
			fmt.Fprintf(os.Stderr, "game over: %v\n", statusText(res))
		}
	}
}

func render(b *game.Board) {
	fmt.Fprintf(os.Stderr, "\n%v\n", b)
}

// readMove prompts on stderr and reads from the terminal until a legal
// move arrives. Returns the sentinel only when the terminal closes.
func readMove(b *game.Board, input *bufio.Scanner) game.Move {
	if input == nil {
		return game.MoveEmpty
	}
	for {
		fmt.Fprintf(os.Stderr, "%v> ", b.SideToMove())
		if !input.Scan() {
			return game.MoveEmpty
		}
		var line = input.Text()
		if line == "" {
			continue
		}
		if m, ok := game.ParseMove(b, line); ok {
			return m
		}
		fmt.Fprintf(os.Stderr, "illegal move %q, try again\n", line)
	}
}

func statusText(res game.Result) string {
	if res == game.WhiteWins {
		return "white wins"
	}
	return "black wins"
}
