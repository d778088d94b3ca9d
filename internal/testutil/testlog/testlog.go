package testlog

import (
	"fmt"
	"testing"

	"github.com/danmuck/pubd/internal/logging"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("start")
}

// Logf records a test progress line at debug level.
func Logf(format string, args ...any) {
	log.Debug().Msg(fmt.Sprintf(format, args...))
}
