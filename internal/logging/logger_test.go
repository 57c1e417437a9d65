package logging

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, GetLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, GetLevel("warning"))
	assert.Equal(t, logrus.TraceLevel, GetLevel("trace"))
	assert.Equal(t, logrus.InfoLevel, GetLevel("bogus"))
}

func TestSetup_FileOutput(t *testing.T) {
	logger := logrus.New()
	path := filepath.Join(t.TempDir(), "fitrecs")

	flush := Setup(logger, LoggerSetupParams{
		LogFileName:   path,
		LogLevel:      "info",
		LogFormatJSON: true,
	})
	logger.Info("hello file")
	logger.Debug("filtered")
	flush()

	data, err := os.ReadFile(path + ".log")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello file"`)
	assert.NotContains(t, string(data), "filtered")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestSentryHook(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
			return nil
		},
	})
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.AddHook(NewSentryHook(hub, []logrus.Level{logrus.ErrorLevel}))

	logger.Warn("not forwarded")
	logger.WithError(errors.New("db down")).WithField("user_id", "u1").Error("generate failed")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "generate failed", ev.Message)
	assert.Equal(t, sentry.LevelError, ev.Level)
	assert.Equal(t, "u1", ev.Extra["user_id"])
	require.Len(t, ev.Exception, 1)
	assert.Equal(t, "db down", ev.Exception[0].Value)
}

func TestSentryHook_NoClient(t *testing.T) {
	h := NewSentryHook(sentry.NewHub(nil, sentry.NewScope()), logrus.AllLevels)
	assert.Error(t, h.Fire(logrus.NewEntry(logrus.New())))
}
