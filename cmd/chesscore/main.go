package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/server"
)

var (
	fen        = flag.String("fen", board.StartFEN, "position to search")
	depth      = flag.Int("depth", 0, "search depth (0 = engine default)")
	movetime   = flag.Duration("movetime", 0, "time limit per search, e.g. 5s (0 = none)")
	threads    = flag.Int("threads", runtime.NumCPU(), "search threads")
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
	splitDepth = flag.Int("split-depth", 0, "minimum remaining depth for a split point (0 = default)")
	splitMoves = flag.Int("split-moves", 0, "minimum moves left for a split point (0 = default)")
	perft      = flag.Int("perft", 0, "run perft to this depth instead of searching")
	divide     = flag.Bool("divide", false, "with -perft, print per-move counts")
	serve      = flag.String("serve", "", "serve the HTTP analysis API on this address, e.g. :8080")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logger.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		logger.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error().Err(err).Msg("chesscore failed")
		// deferred profile writes are skipped by os.Exit
		pprof.StopCPUProfile()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger zerolog.Logger) error {
	if *perft > 0 {
		return runPerft(ctx, logger)
	}

	eng, err := engine.New(engine.Config{
		MaxDepth:      *depth,
		Threads:       *threads,
		HashMB:        *hashMB,
		SplitMinDepth: *splitDepth,
		SplitMinMoves: *splitMoves,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	if *serve != "" {
		return runServer(ctx, eng, logger)
	}
	return runSearch(ctx, eng)
}

func runSearch(ctx context.Context, eng *engine.Engine) error {
	b, err := board.ParseFEN(*fen)
	if err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}
	fmt.Print(b)

	res, err := eng.SearchWithLimits(ctx, b, engine.SearchLimits{Depth: *depth, MoveTime: *movetime})
	if err != nil && res.Move == board.NoMove {
		return err
	}
	if res.Move == board.NoMove {
		if b.InCheck() {
			fmt.Println("checkmate")
		} else {
			fmt.Println("stalemate")
		}
		return nil
	}

	fmt.Printf("bestmove %s (%s)\n", res.Move, b.SAN(res.Move))
	fmt.Printf("score    %s\n", engine.ScoreToString(res.Score))
	fmt.Printf("depth    %d\n", res.Depth)
	fmt.Printf("nodes    %d in %v\n", res.Nodes, res.Elapsed.Round(time.Millisecond))
	fmt.Printf("pv       %s\n", strings.Join(b.SANLine(res.PV), " "))
	return nil
}

func runPerft(ctx context.Context, logger zerolog.Logger) error {
	b, err := board.ParseFEN(*fen)
	if err != nil {
		return err
	}
	start := time.Now()
	entries, err := b.ParallelPerft(ctx, *perft, *threads)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if *divide {
		for _, e := range entries {
			fmt.Printf("%s: %d\n", e.Move, e.Nodes)
		}
		fmt.Println()
	}
	nodes := board.SumDivide(entries)
	fmt.Printf("perft(%d) = %d\n", *perft, nodes)
	logger.Info().
		Int("depth", *perft).
		Uint64("nodes", nodes).
		Dur("elapsed", elapsed).
		Float64("mnps", float64(nodes)/elapsed.Seconds()/1e6).
		Msg("perft complete")
	return nil
}

func runServer(ctx context.Context, eng *engine.Engine, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              *serve,
		Handler:           server.New(eng, server.Options{Logger: logger, PerftWorkers: *threads}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", *serve).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	eng.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
