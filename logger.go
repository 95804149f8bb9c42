package cmdbuf

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/cmdbuf/sink"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

func slogger() *slog.Logger { return loggerPtr.Load() }

// SetLogger configures the logger for cmdbuf and its sub-packages.
// By default, cmdbuf produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to disable logging.
//
// Log levels used by cmdbuf:
//   - [slog.LevelDebug]: pass switches, delayed pipeline binds, journal replays
//   - [slog.LevelInfo]: queue creation
//   - [slog.LevelWarn]: unsupported features, leaked command buffer tokens
//
// Example:
//
//	cmdbuf.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	sink.SetLogger(l)

	devicesMu.RLock()
	devs := devices
	devicesMu.RUnlock()
	for _, d := range devs {
		d.SetLogger(l)
	}
}

// Logger returns the current logger used by cmdbuf.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by native devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

var (
	devicesMu sync.RWMutex
	devices   []loggerSetter
)

// propagateLogger hands the current logger to dev, if it takes one, and
// remembers dev for later SetLogger calls.
func propagateLogger(dev any) {
	ls, ok := dev.(loggerSetter)
	if !ok {
		return
	}
	devicesMu.Lock()
	for _, d := range devices {
		if d == ls {
			devicesMu.Unlock()
			ls.SetLogger(Logger())
			return
		}
	}
	devices = append(devices, ls)
	devicesMu.Unlock()
	ls.SetLogger(Logger())
}
