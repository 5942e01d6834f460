package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFormat int

const (
	ColorizedOutput LogFormat = iota
	PlaintextOutput
	JSONOutput
)

type NamedLevel struct {
	Name  string `yaml:"name"`
	Level string `yaml:"level"`
}

type Config struct {
	Production     bool         `yaml:"production"`
	DefaultLevel   string       `yaml:"defaultLevel"`
	Levels         []NamedLevel `yaml:"levels"` // first match will be used
	AddOutputPaths []string     `yaml:"outputPaths"`
	DisableStdErr  bool         `yaml:"disableStdErr"`
	Format         LogFormat    `yaml:"format"`
}

func (l Config) ApplyGlobal() {
	var conf zap.Config
	if l.Production {
		conf = zap.NewProductionConfig()
	} else {
		conf = zap.NewDevelopmentConfig()
	}
	encConfig := conf.EncoderConfig
	switch l.Format {
	case PlaintextOutput:
		encConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		conf.Encoding = "console"
	case JSONOutput:
		encConfig.MessageKey = "msg"
		encConfig.TimeKey = "ts"
		encConfig.LevelKey = "level"
		encConfig.NameKey = "logger"
		encConfig.CallerKey = "caller"
		encConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		conf.Encoding = "json"
	default:
		// default is ColorizedOutput
		conf.Encoding = "console"
		encConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	conf.EncoderConfig = encConfig
	if len(l.AddOutputPaths) > 0 {
		conf.OutputPaths = append(conf.OutputPaths, l.AddOutputPaths...)
	}
	if l.DisableStdErr {
		paths := conf.OutputPaths[:0]
		for _, path := range conf.OutputPaths {
			if path != "stderr" {
				paths = append(paths, path)
			}
		}
		conf.OutputPaths = paths
	}

	if defaultLevel, err := zap.ParseAtomicLevel(l.DefaultLevel); err == nil {
		conf.Level = defaultLevel
	}

	lg, err := conf.Build()
	if err != nil {
		return
	}
	SetDefault(lg)
	SetNamedLevels(l.Levels)
}
