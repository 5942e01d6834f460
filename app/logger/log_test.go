package logger

import (
	"reflect"
	"testing"

	"go.uber.org/zap"
)

func Test_getLevelExact(t *testing.T) {
	SetNamedLevels([]NamedLevel{
		{Name: "database", Level: "debug"},
		{Name: "database*", Level: "info"},
		{Name: "database.writer", Level: "warn"},
		{Name: "*", Level: "fatal"},
	})

	tests := []struct {
		name string
		want zap.AtomicLevel
	}{
		{
			name: "database",
			want: zap.NewAtomicLevelAt(zap.DebugLevel),
		},
		{
			name: "database.notifier",
			want: zap.NewAtomicLevelAt(zap.InfoLevel),
		},
		{
			// the glob comes first, so the exact entry after it never wins
			name: "database.writer",
			want: zap.NewAtomicLevelAt(zap.InfoLevel),
		},
		{
			name: "random",
			want: zap.NewAtomicLevelAt(zap.FatalLevel),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getLevel(tt.name); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("getLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_getLevelGlobFirst(t *testing.T) {
	SetNamedLevels([]NamedLevel{
		{Name: "*", Level: "ERROR"},
		{Name: "database", Level: "info"},
		{Name: "*.notifier", Level: "warn"},
	})

	tests := []struct {
		name string
		want zap.AtomicLevel
	}{
		{
			name: "database",
			want: zap.NewAtomicLevelAt(zap.ErrorLevel),
		},
		{
			name: "database.notifier",
			want: zap.NewAtomicLevelAt(zap.ErrorLevel),
		},
		{
			name: "random",
			want: zap.NewAtomicLevelAt(zap.ErrorLevel),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getLevel(tt.name); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("getLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_getLevelInvalid(t *testing.T) {
	SetNamedLevels([]NamedLevel{
		{Name: "*", Level: "invalid"},
		{Name: "database", Level: "info"},
		{Name: "b", Level: "invalid"},
	})

	tests := []struct {
		name string
		want zap.AtomicLevel
	}{
		{
			name: "database",
			want: zap.NewAtomicLevelAt(zap.InfoLevel),
		},
		{
			name: "database.writer",
			want: zap.NewAtomicLevelAt(logger.Level()),
		},
		{
			name: "b",
			want: zap.NewAtomicLevelAt(logger.Level()),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getLevel(tt.name); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("getLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}
