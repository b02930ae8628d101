package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type FileRotate struct {
	Enable     bool   // 是否启用文件写入 + 切割
	Filename   string // 日志文件路径，如 logs/identitydb.log
	MaxSizeMB  int    // 单个文件最大 MB
	MaxBackups int    // 保留旧文件个数
	MaxAgeDays int    // 保留天数
	Compress   bool   // 是否压缩旧日志
}

type Options struct {
	Level       string     // debug / info / warn / error
	JSON        bool       // 是否 JSON 格式输出
	AddCaller   bool       // 是否输出调用者文件行号
	Development bool       // 开发模式（影响编码器细节）
	Rotate      FileRotate // 文件切割配置（可选）

	// Out 控制台输出，默认 os.Stdout
	Out zapcore.WriteSyncer
}

// New 控制台输出；JSON=false 时使用开发格式
func New(level string, json bool) (*zap.Logger, func()) {
	return Build(Options{Level: level, JSON: json, AddCaller: true, Development: !json})
}

func Build(opt Options) (*zap.Logger, func()) {
	var lvl zapcore.Level
	if err := lvl.Set(opt.Level); err != nil {
		lvl = zapcore.InfoLevel
	}

	var enc zapcore.Encoder
	if opt.JSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.TimeKey = "ts"
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	out := opt.Out
	if out == nil {
		out = zapcore.Lock(zapcore.AddSync(os.Stdout))
	}
	sinks := []zapcore.Core{zapcore.NewCore(enc, out, lvl)}

	var rotator *lumberjack.Logger
	if opt.Rotate.Enable && opt.Rotate.Filename != "" {
		rotator = &lumberjack.Logger{
			Filename:   opt.Rotate.Filename,
			MaxSize:    max(1, opt.Rotate.MaxSizeMB),
			MaxBackups: max(0, opt.Rotate.MaxBackups),
			MaxAge:     max(0, opt.Rotate.MaxAgeDays),
			Compress:   opt.Rotate.Compress,
		}
		sinks = append(sinks, zapcore.NewCore(enc, zapcore.AddSync(rotWriter{rotator}), lvl))
	}

	sampled := zapcore.NewSamplerWithOptions(zapcore.NewTee(sinks...), time.Second, 100, 100)

	opts := []zap.Option{}
	if opt.AddCaller {
		opts = append(opts, zap.AddCaller())
	}
	if opt.Development {
		opts = append(opts, zap.Development())
	}
	l := zap.New(sampled, opts...)
	cleanup := func() {
		_ = l.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}
	return l, cleanup
}

type rotWriter struct{ *lumberjack.Logger }

func (w rotWriter) Write(p []byte) (n int, err error) { return w.Logger.Write(p) }
func (w rotWriter) Sync() error                       { return nil }

type zapIOWriter struct {
	l     *zap.Logger
	level zapcore.Level
}

func (w *zapIOWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\r\n")
	if ce := w.l.Check(w.level, msg); ce != nil {
		ce.Write()
	}
	return len(p), nil
}

// ToWriter 把 gin 等第三方的文本输出转进 zap
func ToWriter(l *zap.Logger, level zapcore.Level) io.Writer {
	return &zapIOWriter{l: l, level: level}
}

func RedirectStdLog(l *zap.Logger, level zapcore.Level) func() {
	undo, err := zap.RedirectStdLogAt(l, level)
	if err != nil {
		return func() {}
	}
	return undo
}
