package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Enabled    bool   // Включено ли логирование
	Level      string // DEBUG, INFO, WARN, ERROR
	LogsDir    string // Директория для логов
	SavingDays uint   // Сколько дней хранить логи
}

// Logger - логгер с префиксом компонента поверх logrus.
// Производные логгеры из WithPrefix разделяют общий вывод и файл.
type Logger struct {
	config *Config
	base   *logrus.Logger
	shared *sink
	prefix string
}

type sink struct {
	file      *os.File
	stop      chan struct{}
	closeOnce sync.Once
}

func NewLogger(cfg *Config, prefix string) *Logger {
	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	base.SetLevel(parseLevel(cfg.Level))

	l := &Logger{
		config: cfg,
		base:   base,
		shared: &sink{stop: make(chan struct{})},
		prefix: prefix,
	}

	var output io.Writer = os.Stdout
	if !cfg.Enabled {
		output = io.Discard
	} else if cfg.LogsDir != "" {
		if err := os.MkdirAll(cfg.LogsDir, 0755); err == nil {
			logFile := filepath.Join(cfg.LogsDir, time.Now().Format("2006-01-02")+".log")
			if file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
				l.shared.file = file
				output = io.MultiWriter(os.Stdout, file)
			}
		}
	}
	base.SetOutput(output)

	if cfg.Enabled && cfg.LogsDir != "" && cfg.SavingDays > 0 {
		go l.cleanOldLogs()
	}

	return l
}

// NewNop возвращает логгер, который ничего не пишет.
func NewNop() *Logger {
	return NewLogger(&Config{Enabled: false, Level: "ERROR"}, "")
}

func (l *Logger) WithPrefix(prefix string) *Logger {
	newPrefix := l.prefix
	if newPrefix != "" {
		newPrefix += " "
	}
	newPrefix += "[" + prefix + "]"

	return &Logger{
		config: l.config,
		base:   l.base,
		shared: l.shared,
		prefix: newPrefix,
	}
}

// Logrus возвращает базовый логгер для библиотек, принимающих *logrus.Logger.
func (l *Logger) Logrus() *logrus.Logger {
	return l.base
}

func (l *Logger) cleanOldLogs() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		l.removeExpired(time.Now())
		select {
		case <-l.shared.stop:
			return
		case <-ticker.C:
		}
	}
}

func (l *Logger) removeExpired(now time.Time) {
	files, err := os.ReadDir(l.config.LogsDir)
	if err != nil {
		l.Error("Failed to read logs directory", "error", err)
		return
	}

	cutoff := now.AddDate(0, 0, -int(l.config.SavingDays))
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".log") {
			continue
		}
		if info, err := file.Info(); err == nil && info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(l.config.LogsDir, file.Name())); err != nil {
				l.Error("Failed to delete old log file", "file", file.Name(), "error", err)
			}
		}
	}
}

func (l *Logger) log(level logrus.Level, msg string, fields ...interface{}) {
	if !l.config.Enabled || !l.base.IsLevelEnabled(level) {
		return
	}

	entry := logrus.NewEntry(l.base)
	if len(fields) > 0 {
		data := make(logrus.Fields, (len(fields)+1)/2)
		for i := 0; i < len(fields); i += 2 {
			key := fmt.Sprint(fields[i])
			var val interface{} = "?"
			if i+1 < len(fields) {
				val = fields[i+1]
			}
			if err, ok := val.(error); ok {
				val = err.Error()
			}
			data[key] = val
		}
		entry = entry.WithFields(data)
	}

	if l.prefix != "" {
		msg = l.prefix + " " + msg
	}
	entry.Log(level, msg)
}

func (l *Logger) ShouldLog(level string) bool {
	if !l.config.Enabled {
		return false
	}
	return l.base.IsLevelEnabled(parseLevel(level))
}

func (l *Logger) Debug(msg string, fields ...interface{}) { l.log(logrus.DebugLevel, msg, fields...) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.log(logrus.InfoLevel, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.log(logrus.WarnLevel, msg, fields...) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.log(logrus.ErrorLevel, msg, fields...) }

func (l *Logger) Close() error {
	var err error
	l.shared.closeOnce.Do(func() {
		close(l.shared.stop)
		if l.shared.file != nil {
			err = l.shared.file.Close()
		}
	})
	return err
}

func parseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return logrus.InfoLevel // INFO по умолчанию
	}
	return parsed
}
