package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func ensureLogDir() string {
	dir := "log"
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func NewLog(n string) *zap.Logger {
	dir := ensureLogDir()

	cfg := zap.NewProductionEncoderConfig()
	cfg.MessageKey = zapcore.OmitKey

	console := zapcore.Lock(os.Stdout)

	var logPath string
	if runtime.GOOS == "windows" {
		logPath = filepath.Join(dir, n)
	} else {
		logPath = fmt.Sprintf("%s/%s", dir, n)
	}

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, zap.InfoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), console, zap.InfoLevel),
	)
	return zap.New(core)
}

var (
	accessMu  sync.Mutex
	accessLog *zap.Logger
)

// accessLogger opens http-access.log on first use.
func accessLogger() *zap.Logger {
	accessMu.Lock()
	defer accessMu.Unlock()
	if accessLog == nil {
		accessLog = NewLog("http-access.log")
	}
	return accessLog
}
