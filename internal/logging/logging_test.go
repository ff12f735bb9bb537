package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelInfo, false},
		{"info", LevelInfo, false},
		{"DEBUG", LevelDebug, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"trace", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	assert.False(t, New(LevelError).Core().Enabled(zapcore.WarnLevel))
	assert.True(t, New(LevelWarn).Core().Enabled(zapcore.WarnLevel))
	assert.False(t, New(LevelInfo).Core().Enabled(zapcore.DebugLevel))
	assert.True(t, New(LevelDebug).Core().Enabled(zapcore.DebugLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := New(LevelInfo)
	assert.Same(t, l, OrNop(l))
}
