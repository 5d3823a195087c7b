package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ccheck-game/ccheck/internal/config"
	"github.com/ccheck-game/ccheck/internal/referee"
)

const name = "ccheck"

var (
	versionName = "dev"

	flgWhite      bool
	flgBlack      bool
	flgRandom     bool
	flgVerbose    bool
	flgNoDisplay  bool
	flgTournament bool
	flgAvgTime    float64
	flgHistory    string
	flgTranscript string
	flgEngine     string
	flgDisplay    string
	flgWatch      string
)

func main() {
	var defaults = config.Load()
	flag.BoolVar(&flgWhite, "w", false, "engine plays white")
	flag.BoolVar(&flgBlack, "b", false, "engine plays black")
	flag.BoolVar(&flgRandom, "r", false, "randomize engine move choice")
	flag.BoolVar(&flgVerbose, "v", false, "verbose logging")
	flag.BoolVar(&flgNoDisplay, "d", false, "do not spawn the display child")
	flag.BoolVar(&flgTournament, "t", false, "tournament mode: moves over stdio, no display")
	flag.Float64Var(&flgAvgTime, "a", defaults.AvgTime.Seconds(), "average seconds per engine move")
	flag.StringVar(&flgHistory, "i", "", "preload moves from file before play")
	flag.StringVar(&flgTranscript, "o", "", "write the move transcript to file")
	flag.StringVar(&flgEngine, "engine", defaults.EnginePath, "engine child binary")
	flag.StringVar(&flgDisplay, "display", defaults.DisplayPath, "display child binary")
	flag.StringVar(&flgWatch, "watch", defaults.WatchAddr, "serve a websocket observer feed on this address")
	flag.Parse()

	var log = newLogger(flgVerbose)
	log.Info().Str("version", versionName).Msg(name)

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var r = referee.New(referee.Config{
		WhiteEngine:    flgWhite,
		BlackEngine:    flgBlack,
		Randomized:     flgRandom,
		Verbose:        flgVerbose,
		NoDisplay:      flgNoDisplay,
		Tournament:     flgTournament,
		AvgTime:        time.Duration(flgAvgTime * float64(time.Second)),
		HistoryPath:    flgHistory,
		TranscriptPath: flgTranscript,
		EnginePath:     flgEngine,
		DisplayPath:    flgDisplay,
		WatchAddr:      flgWatch,
		AckRetries:     defaults.AckRetries,
		AckBackoff:     defaults.AckBackoff,
		Grace:          defaults.Grace,
	}, log)

	if err := r.Run(ctx); err != nil {
		log.Error().Err(err).Msg("game aborted")
		os.Exit(1)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	var level = zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
