package referee

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ccheck-game/ccheck/internal/supervisor"
	"github.com/ccheck-game/ccheck/pkg/game"
)

// scriptedSource plays a fixed move list, then reports end of input.
type scriptedSource struct {
	r     *Referee
	texts []string
}

func (s *scriptedSource) name() string { return "scripted" }

func (s *scriptedSource) request(context.Context) (game.Move, error) {
	if len(s.texts) == 0 {
		return game.MoveEmpty, errEndOfInput
	}
	var text = s.texts[0]
	s.texts = s.texts[1:]
	var m, ok = game.ParseMove(s.r.board, text)
	if !ok {
		// Deliberately unvalidated, so tests can feed garbage through.
		return game.NewMove(27, 35), nil
	}
	return m, nil
}

// greedySource always plays the first generated move.
type greedySource struct {
	r     *Referee
	limit int
	made  int
}

func (g *greedySource) name() string { return "greedy" }

func (g *greedySource) request(context.Context) (game.Move, error) {
	if g.made >= g.limit {
		return game.MoveEmpty, errEndOfInput
	}
	g.made++
	var buf [game.MaxMoves]game.Move
	return g.r.board.GenerateMoves(buf[:])[0], nil
}

func newTestReferee(t *testing.T) (*Referee, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	var r = New(Config{Output: &out}, zerolog.Nop())
	return r, &out
}

func TestRunLoopRecordsEveryPly(t *testing.T) {
	var r, _ = newTestReferee(t)
	var tx bytes.Buffer
	r.tx = newTranscriptWriter(&tx)
	var src = &greedySource{r: r, limit: 12}
	r.sources = [2]moveSource{src, src}

	if err := r.runLoop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if r.board.Ply() != 12 {
		t.Fatalf("board advanced %v plies, want 12", r.board.Ply())
	}
	if r.tx.Count() != 12 {
		t.Fatalf("transcript recorded %v plies, want 12", r.tx.Count())
	}
	var lines = strings.Split(strings.TrimSpace(tx.String()), "\n")
	if !strings.HasPrefix(lines[0], "1. white:") {
		t.Errorf("first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1. ... black:") {
		t.Errorf("second line %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "2. white:") {
		t.Errorf("third line %q", lines[2])
	}
}

func TestRunLoopRejectsIllegalMove(t *testing.T) {
	var r, _ = newTestReferee(t)
	// d4-d5 starts from an empty square on the opening position.
	var src = &scriptedSource{r: r, texts: []string{"d4-d5"}}
	r.sources = [2]moveSource{src, src}

	var err = r.runLoop(context.Background())
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
	if r.board.Ply() != 0 {
		t.Fatal("illegal move reached the board")
	}
}

func TestRunLoopAnnouncesWin(t *testing.T) {
	var r, out = newTestReferee(t)
	var b, err = game.FromSerial("....wwww/.....www/......ww/......../......w./......../......../........ white 10")
	if err != nil {
		t.Fatal(err)
	}
	r.board = b
	var src = &scriptedSource{r: r, texts: []string{"g4-h5"}}
	r.sources = [2]moveSource{src, src}

	if err := r.runLoop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if r.board.Result() != game.WhiteWins {
		t.Fatalf("result = %v", r.board.Result())
	}
	if !strings.Contains(out.String(), "white wins!") {
		t.Fatalf("no announcement in %q", out.String())
	}
}

func TestRunLoopInterrupted(t *testing.T) {
	var r, _ = newTestReferee(t)
	var ctx, cancel = context.WithCancel(context.Background())
	cancel()
	var src = &greedySource{r: r, limit: 100}
	r.sources = [2]moveSource{src, src}
	if err := r.runLoop(ctx); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("err = %v, want ErrInterrupted", err)
	}
}

func TestLoadHistoryReplays(t *testing.T) {
	// Build a short legal game, save it, and replay it into a fresh
	// referee. The replayed board must match move for move.
	var played = game.NewBoard()
	var texts []string
	for i := 0; i < 8; i++ {
		var buf [game.MaxMoves]game.Move
		var m = played.GenerateMoves(buf[:])[0]
		texts = append(texts, m.String())
		played.MakeMove(m)
	}
	var path = filepath.Join(t.TempDir(), "history")
	var content = "# saved game\n" + strings.Join(texts, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var r, _ = newTestReferee(t)
	var tx bytes.Buffer
	r.tx = newTranscriptWriter(&tx)
	if err := r.loadHistory(path); err != nil {
		t.Fatal(err)
	}
	if got, want := r.board.Serialize(), played.Serialize(); got != want {
		t.Fatalf("replayed board %q, want %q", got, want)
	}
	if r.tx.Count() != len(texts) {
		t.Fatalf("transcribed %v plies, want %v", r.tx.Count(), len(texts))
	}
}

func TestLoadHistoryRejectsGarbage(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "history")
	if err := os.WriteFile(path, []byte("a4-b5\nnot a move\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var r, _ = newTestReferee(t)
	if err := r.loadHistory(path); err == nil {
		t.Fatal("garbage history accepted")
	}
}

func TestChildDeathDuringRequestIsFatal(t *testing.T) {
	// A child that swallows its move request and exits must surface as a
	// child failure carrying its exit status, never as a clean end of
	// game — whichever of pipe close and process exit is seen first.
	var r, _ = newTestReferee(t)
	var c, err = r.sup.Spawn(supervisor.RoleEngine, "sh", "-c", "trap '' HUP; read line; exit 3")
	if err != nil {
		t.Skipf("cannot spawn sh: %v", err)
	}
	defer r.sup.ShutdownAll(2 * time.Second)
	// Give the shell a beat to install its HUP trap before the request's
	// wake-up signal lands.
	time.Sleep(100 * time.Millisecond)

	var src = &childSource{r: r, p: newParticipant(c)}
	_, err = src.request(context.Background())
	if !errors.Is(err, ErrChildExit) {
		t.Fatalf("err = %v, want ErrChildExit", err)
	}
	if !strings.Contains(err.Error(), "exit status 3") {
		t.Fatalf("exit status missing from diagnostic: %v", err)
	}
}

func TestTerminalSourceObservesCancel(t *testing.T) {
	var r, _ = newTestReferee(t)
	var pr, pw = io.Pipe()
	defer pw.Close()
	var src = newTerminalSource(r, pr, true)

	var ctx, cancel = context.WithCancel(context.Background())
	var done = make(chan error, 1)
	go func() {
		var _, err = src.request(ctx)
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, ErrInterrupted) {
			t.Fatalf("err = %v, want ErrInterrupted", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("request kept blocking after cancellation")
	}
}

func TestTranscriptLayout(t *testing.T) {
	var buf bytes.Buffer
	var tx = newTranscriptWriter(&buf)
	tx.Record(0, game.White, "a4-b5")
	tx.Record(1, game.Black, "h5-g4")
	tx.Record(2, game.White, "b5-c6")
	var want = "1. white:a4-b5\n1. ... black:h5-g4\n2. white:b5-c6\n"
	if buf.String() != want {
		t.Fatalf("transcript = %q, want %q", buf.String(), want)
	}
	if tx.Count() != 3 {
		t.Fatalf("count = %v", tx.Count())
	}
	var nilTx *Transcript
	if err := nilTx.Record(0, game.White, "a4-b5"); err != nil {
		t.Fatal("nil transcript must be a no-op")
	}
}
