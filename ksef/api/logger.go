package api

import (
	"github.com/sirupsen/logrus"
)

// ExchangeLogger odbiera zapis każdej wymiany HTTP z KSeF. Implementacja
// jest wstrzykiwana, dzięki czemu aplikacja może kierować zapis do własnego
// audytu zamiast do współdzielonego pliku.
type ExchangeLogger interface {
	LogExchange(method, url string, reqBody []byte, respStatus int, respBody []byte)
}

// NopExchangeLogger wyłącza logowanie wymian.
type NopExchangeLogger struct{}

func (NopExchangeLogger) LogExchange(string, string, []byte, int, []byte) {}

// LogrusExchangeLogger loguje wymiany na poziomie debug. Treści są przycinane,
// żeby nie zalewać logu dużymi fakturami.
type LogrusExchangeLogger struct {
	Logger *logrus.Entry
}

func NewLogrusExchangeLogger() *LogrusExchangeLogger {
	return &LogrusExchangeLogger{Logger: logrus.WithField("component", "ksef.transactions")}
}

const maxLoggedBody = 4096

func (l *LogrusExchangeLogger) LogExchange(method, url string, reqBody []byte, respStatus int, respBody []byte) {
	l.Logger.WithFields(logrus.Fields{
		"method": method,
		"url":    url,
		"status": respStatus,
	}).Debugf("request: %s response: %s", clip(reqBody), clip(respBody))
}

func clip(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "..."
	}
	return string(b)
}
