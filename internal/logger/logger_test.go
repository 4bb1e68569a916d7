package logger_test

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gotest.tools/v3/assert"

	"github.com/nikbrunner/pdfshelf/internal/logger"
)

func TestNewFromZap_WritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.NewFromZap(zap.New(core))

	log.Warn("thumbnail delete failed",
		logger.String("path", "/t/a.jpg"),
		logger.Error(errors.New("locked")))

	entries := logs.All()
	assert.Equal(t, len(entries), 1)
	assert.Equal(t, entries[0].Message, "thumbnail delete failed")
	assert.Equal(t, entries[0].ContextMap()["path"], "/t/a.jpg")
	assert.Equal(t, entries[0].ContextMap()["error"], "locked")
}

func TestNew_UnknownLevelFallsBackToDefault(t *testing.T) {
	log := logger.New("chatty", false)
	log.Info("hello")
	_ = log.Sync()
}

func TestNewNop_DiscardsEverything(t *testing.T) {
	log := logger.NewNop()
	log.Error("ignored")
	log.Debugf("ignored %d", 1)
	assert.NilError(t, log.Sync())
}
