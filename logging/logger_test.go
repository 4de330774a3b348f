package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerReturnsSingletonPerComponent(t *testing.T) {
	first := NewLogger("test-component")
	second := NewLogger("test-component")
	assert.Same(t, first, second)

	other := NewLogger("other-component")
	assert.NotSame(t, first, other)
	assert.Equal(t, "other-component", other.Data["component"])
}

func TestNewLoggerLevelFromEnv(t *testing.T) {
	t.Setenv("LOOKOUT_LOG_LEVEL", "debug")
	logger := NewLogger("env-level-component")
	assert.Equal(t, logrus.DebugLevel, logger.Logger.GetLevel())
}

func TestTextFormatter(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "disk rattling",
		Data: logrus.Fields{
			"component": "observer",
			"dir":       "/watched",
		},
	}

	t.Run("default preset", func(t *testing.T) {
		f := &TextFormatter{}
		out, err := f.Format(entry)
		require.NoError(t, err)
		s := string(out)
		assert.Contains(t, s, "2024-06-01 12:30:45")
		assert.Contains(t, s, "[WARN]")
		assert.Contains(t, s, "[observer]")
		assert.Contains(t, s, "disk rattling")
		assert.Contains(t, s, "dir=/watched")
		assert.True(t, strings.HasSuffix(s, "\n"))
	})

	t.Run("simple preset drops timestamp and component", func(t *testing.T) {
		f := &TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}}
		out, err := f.Format(entry)
		require.NoError(t, err)
		s := string(out)
		assert.NotContains(t, s, "2024-06-01")
		assert.NotContains(t, s, "[observer]")
		assert.Contains(t, s, "[WARN] disk rattling")
	})
}

func TestFormatterWritesThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&TextFormatter{})

	logger.WithField("component", "itemlist").Info("batch dispatched")
	assert.Contains(t, buf.String(), "[INFO] [itemlist] batch dispatched")
}
