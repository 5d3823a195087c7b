package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ccheck-game/ccheck/pkg/engine"
	"github.com/ccheck-game/ccheck/pkg/game"
	"github.com/ccheck-game/ccheck/pkg/proto"
)

const name = "ccheck-engine"

// Exit status distinguishing "nothing to play" from a crash, so the
// referee and tournament drivers can tell the two apart.
const exitNoLegalMove = 3

var (
	versionName = "dev"

	flgAvgTime float64
	flgRandom  bool
	flgVerbose bool
	flgPonder  bool
	flgStart   string
)

func main() {
	flag.Float64Var(&flgAvgTime, "a", 0, "average seconds per move (0 = fixed depth)")
	flag.BoolVar(&flgRandom, "r", false, "randomize move choice among near-equals")
	flag.BoolVar(&flgVerbose, "v", false, "log per-depth search statistics")
	flag.BoolVar(&flgPonder, "p", true, "think on the opponent's time")
	flag.StringVar(&flgStart, "s", "", "resume from this serialized position")
	flag.Parse()

	var level = zerolog.InfoLevel
	if flgVerbose {
		level = zerolog.DebugLevel
	}
	var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Str("prog", name).Logger()
	log.Info().Str("version", versionName).Msg("starting")

	// The wake-up signal must not terminate the process; draining it
	// into a channel is enough, the reader goroutine is always on the
	// pipe anyway.
	var wake = make(chan os.Signal, 1)
	signal.Notify(wake, syscall.SIGHUP)

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var eng = engine.NewEngine()
	eng.Randomized = flgRandom

	var s = engine.NewScheduler(
		eng,
		proto.NewConn(os.Stdin, os.Stdout),
		time.Duration(flgAvgTime*float64(time.Second)),
		log,
	)
	s.Ponder = flgPonder
	s.Verbose = flgVerbose
	if flgStart != "" {
		var b, err = game.FromSerial(flgStart)
		if err != nil {
			log.Error().Err(err).Msg("bad start position")
			os.Exit(1)
		}
		s.SetBoard(b)
	}

	if err := s.Run(ctx); err != nil {
		if errors.Is(err, engine.ErrNoLegalMove) {
			log.Error().Err(err).Msg("cannot answer request")
			os.Exit(exitNoLegalMove)
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error().Err(err).Msg("engine stopped")
		os.Exit(1)
	}
}
