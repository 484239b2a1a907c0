package debug

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	rtdebug "runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var LogDirectory = GetUserDebugDir()

func GetUserDebugDir() string {
	if dir := os.Getenv("ROOMLINE_DEBUG_DIR"); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return filepath.Join(os.TempDir(), "roomline-"+getUname())
	}
	// See https://specifications.freedesktop.org/basedir-spec/basedir-spec-latest.html
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return filepath.Join(xdgStateHome, "roomline")
	}
	home := os.Getenv("HOME")
	if home == "" {
		fmt.Println("XDG_STATE_HOME and HOME are both unset")
		os.Exit(1)
	}
	return filepath.Join(home, ".local", "state", "roomline")
}

func getUname() string {
	currUser, err := user.Current()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	return currUser.Username
}

// Initialize opens debug.log in LogDirectory and returns a logger writing
// to it. The returned closer must be closed on shutdown.
func Initialize(level string) (zerolog.Logger, io.Closer, error) {
	if err := os.MkdirAll(LogDirectory, 0750); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(LogDirectory, "debug.log"), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open debug log: %w", err)
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.DebugLevel
	}

	logger := New(file).Level(lvl)
	logger.Info().Msg("======================= Debug init @ " + time.Now().Format("02-01-2006 15:04:05") + " =======================")

	return logger, file, nil
}

// New returns a console-formatted logger writing to out.
func New(out io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "02-01-2006 15:04:05",
		FormatLevel: func(i interface{}) string {
			return strings.ToUpper(fmt.Sprintf("[%s]", i))
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("| %s |", i)
		},
		FormatCaller: func(i interface{}) string {
			return filepath.Base(fmt.Sprintf("%s", i))
		},
		PartsExclude: []string{
			zerolog.TimestampFieldName,
		},
		NoColor: true,
	}).With().Timestamp().Caller().Logger()
}

// Recover logs a panic of the calling goroutine instead of crashing.
// Use as "defer debug.Recover(log)".
func Recover(log zerolog.Logger) {
	if err := recover(); err != nil {
		log.Error().
			Interface("panic", err).
			Str("stack", string(rtdebug.Stack())).
			Msg("Recovered from panic")
	}
}
