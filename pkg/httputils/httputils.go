package httputils

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

const defaultRetryMax = 3

// NewRetryableHttpClient returns a standard client that retries failed
// requests and paces every attempt through rl when rl is not nil.
func NewRetryableHttpClient(timeout time.Duration, rl ratelimit.Limiter, log *logrus.Entry) *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = defaultRetryMax
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	if log != nil {
		client.Logger = &leveledLogger{log: log}
	}

	if rl != nil {
		client.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, _ int) {
			rl.Take()
		}
	}

	return client.StandardClient()
}

// leveledLogger adapts a logrus entry to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log *logrus.Entry
}

func (l *leveledLogger) fields(keysAndValues []interface{}) *logrus.Entry {
	entry := l.log
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			entry = entry.WithField(key, keysAndValues[i+1])
		}
	}
	return entry
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Error(msg)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Trace(msg)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Trace(msg)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}
