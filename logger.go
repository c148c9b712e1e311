package jam

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/MrEthical07/jam/errs"
)

// NewLogger builds a slog.Logger from cfg writing to w (stderr when nil). An
// empty level yields a logger that discards everything.
func NewLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	if cfg.Level == "" {
		return slog.New(slog.DiscardHandler), nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, errs.Configf("config.log.level", "unknown log level %q", cfg.Level)
	}
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errs.Configf("config.log.format", "log format must be text or json, got %q", cfg.Format)
	}
}
