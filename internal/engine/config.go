package engine

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
)

// ErrInvalidConfig is wrapped by every Config.Validate failure.
var ErrInvalidConfig = errors.New("invalid engine config")

// Config configures an Engine.
type Config struct {
	MaxDepth         int // Iterative deepening limit
	Threads          int // Pool workers; 1 disables split points
	HashMB           int // Transposition table size
	SplitMinDepth    int // Minimum remaining depth for a split point
	SplitMinMoves    int // A node splits only with more moves than this left
	AspirationWindow int // Half-width in centipawns, from depth 5
	Logger           zerolog.Logger

	// OnInfo, if set, is called after every completed iteration.
	OnInfo func(SearchInfo)
}

// DefaultConfig returns the configuration used when fields are left zero.
func DefaultConfig() Config {
	return Config{
		MaxDepth:         6,
		Threads:          runtime.NumCPU(),
		HashMB:           64,
		SplitMinDepth:    4,
		SplitMinMoves:    3,
		AspirationWindow: 50,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxDepth == 0 {
		c.MaxDepth = d.MaxDepth
	}
	if c.Threads == 0 {
		c.Threads = d.Threads
	}
	if c.HashMB == 0 {
		c.HashMB = d.HashMB
	}
	if c.SplitMinDepth == 0 {
		c.SplitMinDepth = d.SplitMinDepth
	}
	if c.SplitMinMoves == 0 {
		c.SplitMinMoves = d.SplitMinMoves
	}
	if c.AspirationWindow == 0 {
		c.AspirationWindow = d.AspirationWindow
	}
	return c
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.MaxDepth < 0 || c.MaxDepth >= MaxPly:
		return fmt.Errorf("%w: max depth %d outside [1, %d)", ErrInvalidConfig, c.MaxDepth, MaxPly)
	case c.Threads < 0:
		return fmt.Errorf("%w: negative thread count %d", ErrInvalidConfig, c.Threads)
	case c.HashMB < 0:
		return fmt.Errorf("%w: negative hash size %d", ErrInvalidConfig, c.HashMB)
	case c.SplitMinDepth < 0:
		return fmt.Errorf("%w: negative split depth %d", ErrInvalidConfig, c.SplitMinDepth)
	case c.SplitMinMoves < 0:
		return fmt.Errorf("%w: negative split move count %d", ErrInvalidConfig, c.SplitMinMoves)
	case c.AspirationWindow < 0:
		return fmt.Errorf("%w: negative aspiration window %d", ErrInvalidConfig, c.AspirationWindow)
	}
	return nil
}
