package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New создаёт настроенный logrus-логгер: текст для разработки, JSON для остальных окружений
func New(appName, env string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if env == "development" {
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	log.WithFields(logrus.Fields{"app": appName, "env": env}).Info("логгер инициализирован")
	return log
}

// Discard возвращает логгер без вывода, удобен в тестах
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
