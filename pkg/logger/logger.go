package logger

import (
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string `env:"LOG_LEVEL"`
	Filename   string `env:"LOG_FILENAME"`
	MaxSize    int    `env:"LOG_MAX_SIZE"` // 单个日志文件最大尺寸（MB）
	MaxAge     int    `env:"LOG_MAX_AGE"`  // 保留天数
	MaxBackups int    `env:"LOG_MAX_BACKUPS"`
	Daily      bool   `env:"LOG_DAILY"`
}

// Lg 全局日志实例
var Lg *zap.Logger

// Init 初始化日志系统，production 模式下输出 JSON 并写入文件
func Init(cfg *LogConfig, mode string) error {
	level := zapcore.InfoLevel
	if cfg != nil && cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			level = zapcore.InfoLevel
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if mode == "production" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), fileWriter, level))
	} else {
		devEncoderCfg := zap.NewDevelopmentEncoderConfig()
		devEncoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(devEncoderCfg), zapcore.AddSync(os.Stdout), level))
	}

	Lg = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	zap.ReplaceGlobals(Lg)
	return nil
}

// Info 记录 Info 级别日志
func Info(msg string, fields ...zap.Field) {
	l().Info(msg, fields...)
}

// Warn 记录 Warn 级别日志
func Warn(msg string, fields ...zap.Field) {
	l().Warn(msg, fields...)
}

// Error 记录 Error 级别日志
func Error(msg string, fields ...zap.Field) {
	l().Error(msg, fields...)
}

// Debug 记录 Debug 级别日志
func Debug(msg string, fields ...zap.Field) {
	l().Debug(msg, fields...)
}

func l() *zap.Logger {
	if Lg == nil {
		Lg = zap.NewNop()
	}
	return Lg
}
