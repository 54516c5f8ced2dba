package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New создает настроенный logrus-логгер.
// В формате json пишем в stdout, уровень берем из конфигурации.
func New(logLevel string) *logrus.Logger {
	log := logrus.New()

	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel // уровень по умолчанию при некорректном значении
	}
	log.SetLevel(level)

	return log
}
