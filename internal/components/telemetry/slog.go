package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SlogAPI implements API using the log/slog package.
// Counts are additionally recorded as an OpenTelemetry gauge, which is a
// no-op until SetupOtel installs a meter provider.
type SlogAPI struct {
	logger *slog.Logger
}

// NewSlogAPI creates a SlogAPI writing to logger, nil means slog.Default().
func NewSlogAPI(logger *slog.Logger) SlogAPI {
	return SlogAPI{logger: logger}
}

func (s SlogAPI) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

func (SlogAPI) formatParams(out *[]any, params []any) {
	for i, p := range params {
		*out = append(
			*out,
			fmt.Sprintf("params.%d", i),
			p,
		)
	}
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	s.log().Error("broken component", remainingPairs...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	s.log().Warn("warning", remainingPairs...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	remainingPairs := []any{}
	s.formatParams(&remainingPairs, params)
	s.log().Debug(message, remainingPairs...)
}

var (
	countGaugeOnce sync.Once
	countGauge     metric.Int64Gauge
)

func (s SlogAPI) ReportCount(id string, count int64) {
	countGaugeOnce.Do(func() {
		countGauge, _ = otel.Meter("ejudge-client").Int64Gauge("event_count")
	})
	if countGauge != nil {
		countGauge.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	}
	s.log().Info("count", "id", id, "n", count)
}

func logColors(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// NewSlogHandler creates the handler used by the CLI, colours are only
// enabled when `out` is a terminal.
func NewSlogHandler(debug bool, out io.Writer) slog.Handler {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return tint.NewHandler(out, &tint.Options{
		AddSource: debug,
		Level:     level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if _, ok := attr.Value.Any().(error); attr.Key == "err" || ok {
				return tint.Attr(9, attr)
			}
			return attr
		},
		TimeFormat: time.Kitchen,
		NoColor:    !logColors(out),
	})
}

// InitSlog installs NewSlogHandler(debug, os.Stderr) as the default logger.
func InitSlog(debug bool) {
	slog.SetDefault(slog.New(NewSlogHandler(debug, os.Stderr)))
}
