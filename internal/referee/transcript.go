package referee

import (
	"fmt"
	"io"
	"os"

	"github.com/ccheck-game/ccheck/pkg/game"
)

// Transcript appends applied moves to a log in the classic paired
// layout: "1. white:a1-b2" for white, "1. ... h8-g7" style continuation
// lines for black. Every Record hits the file immediately, so a crash
// mid-game loses at most nothing.
type Transcript struct {
	w     io.Writer
	close io.Closer
	count int
}

func NewTranscript(path string) (*Transcript, error) {
	var f, err = os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Transcript{w: f, close: f}, nil
}

func newTranscriptWriter(w io.Writer) *Transcript {
	return &Transcript{w: w}
}

// Record writes one applied ply. A nil transcript swallows the call, so
// callers never branch on whether logging is enabled.
func (t *Transcript) Record(ply int, side game.Side, text string) error {
	if t == nil {
		return nil
	}
	var turn = ply/2 + 1
	var err error
	if side == game.White {
		_, err = fmt.Fprintf(t.w, "%d. %v:%v\n", turn, side, text)
	} else {
		_, err = fmt.Fprintf(t.w, "%d. ... %v:%v\n", turn, side, text)
	}
	if err != nil {
		return err
	}
	t.count++
	return nil
}

// Count is the number of plies recorded so far.
func (t *Transcript) Count() int {
	if t == nil {
		return 0
	}
	return t.count
}

func (t *Transcript) Close() error {
	if t == nil || t.close == nil {
		return nil
	}
	return t.close.Close()
}
