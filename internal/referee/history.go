package referee

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ccheck-game/ccheck/pkg/game"
)

// loadHistory replays a saved move list before the first live ply. Each
// replayed move goes through the same application path as a live one:
// the display is told, the transcript records it, the board advances.
// Engines are spawned after the preload, so they never hear about it.
func (r *Referee) loadHistory(path string) error {
	var f, err = os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var lineNo int
	var scanner = bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		var text = strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		// Accept both bare moves and side-labelled lines.
		if i := strings.LastIndexByte(text, ':'); i >= 0 {
			text = text[i+1:]
		}
		var m, ok = game.ParseMove(r.board, text)
		if !ok {
			return fmt.Errorf("history %v line %v: unplayable move %q", path, lineNo, text)
		}
		if err := r.apply(m); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	r.log.Info().Str("path", path).Int("plies", r.board.Ply()).Msg("history preloaded")
	return nil
}
