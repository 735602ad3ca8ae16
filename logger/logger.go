package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultLogger = zap.NewNop()

// Init 初始化全局日志
// level 日志级别 debug/info/warn/error，为空或无法识别时使用 info
func Init(production bool, level string) {
	var conf zap.Config
	if production {
		conf = zap.NewProductionConfig()
	} else {
		conf = zap.NewDevelopmentConfig()
	}

	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			lvl = zapcore.InfoLevel
		}
	}
	conf.Level = zap.NewAtomicLevelAt(lvl)

	l, err := conf.Build()
	if err != nil {
		panic(err)
	}
	defaultLogger = l
}

// SetLogger 替换全局日志
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	defaultLogger = l
}

func Logger() *zap.Logger {
	return defaultLogger
}
