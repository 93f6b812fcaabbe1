package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/trigger-loop/internal/event"
	"github.com/sweeney/trigger-loop/internal/gpio"
)

const sample = `
poll: 50ms
broker: tcp://broker.local:1883
http: ":9090"
inputs:
  - name: arm
    line: 17
  - name: estop
    line: 27
    active_low: true
tasks:
  - name: pump
    timeout: 2s
    requires: [water]
  - name: siren
bindings:
  - when: arm && !estop
    debounce: 100ms
    operator: while_true
    task: pump
  - when: estop
    debounce_mode: both
    operator: on_true
    task: siren
    interruptible: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, cfg.Poll)
	assert.Equal(t, DefaultHeartbeat, cfg.Heartbeat)
	assert.Equal(t, "tcp://broker.local:1883", cfg.Broker)
	assert.Equal(t, ":9090", cfg.HTTP)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, gpio.DefaultChip, cfg.Chip)

	require.Len(t, cfg.Inputs, 2)
	assert.True(t, cfg.Inputs[1].ActiveLow)
	assert.Equal(t, []string{"arm", "estop"}, cfg.InputNames())
	assert.Equal(t, []gpio.Line{
		{Name: "arm", Offset: 17},
		{Name: "estop", Offset: 27, ActiveLow: true},
	}, cfg.Lines())

	require.Len(t, cfg.Tasks, 2)
	assert.Equal(t, 2*time.Second, cfg.Tasks[0].Timeout)
	assert.Equal(t, []string{"water"}, cfg.Tasks[0].Requires)

	require.Len(t, cfg.Bindings, 2)
	assert.Equal(t, 100*time.Millisecond, cfg.Bindings[0].Debounce)
	assert.True(t, cfg.Bindings[0].IsInterruptible())
	assert.False(t, cfg.Bindings[1].IsInterruptible())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("pol: 10ms\n"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRIGGER_POLL", "5ms")
	t.Setenv("TRIGGER_BROKER", "tcp://other:1883")
	t.Setenv("TRIGGER_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Millisecond, cfg.Poll)
	assert.Equal(t, "tcp://other:1883", cfg.Broker)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.HTTP, "unset variables keep the file value")
}

func TestEnvZeroHeartbeatUsesDefault(t *testing.T) {
	t.Setenv("TRIGGER_HEARTBEAT", "0")
	t.Setenv("TRIGGER_POLL", "0s")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, DefaultHeartbeat, cfg.Heartbeat)
	assert.Equal(t, DefaultPoll, cfg.Poll)
}

func TestEnvOverrideBadDuration(t *testing.T) {
	t.Setenv("TRIGGER_POLL", "soon")

	_, err := Load(writeConfig(t, sample))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
		is      error
	}{
		{
			name:    "zero poll after env",
			mutate:  func(c *Config) { c.Poll = 0 },
			wantErr: "poll: must be positive",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: "log_level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: "log_format",
		},
		{
			name:    "no inputs",
			mutate:  func(c *Config) { c.Inputs = nil; c.Bindings = nil },
			wantErr: "at least one input",
		},
		{
			name:    "input name not an identifier",
			mutate:  func(c *Config) { c.Inputs[0].Name = "arm-switch" },
			wantErr: `name "arm-switch" is not an identifier`,
		},
		{
			name:    "duplicate input",
			mutate:  func(c *Config) { c.Inputs[1].Name = "arm" },
			wantErr: `duplicate name "arm"`,
		},
		{
			name:    "shared line",
			mutate:  func(c *Config) { c.Inputs[1].Line = 17 },
			wantErr: `line 17 already used by "arm"`,
		},
		{
			name:    "duplicate task",
			mutate:  func(c *Config) { c.Tasks[1].Name = "pump" },
			wantErr: `tasks[1]: duplicate name "pump"`,
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Tasks[0].Timeout = -time.Second },
			wantErr: "timeout must not be negative",
		},
		{
			name:    "unknown operator",
			mutate:  func(c *Config) { c.Bindings[0].Operator = "when_true" },
			wantErr: `unknown operator "when_true"`,
		},
		{
			name:    "unknown task",
			mutate:  func(c *Config) { c.Bindings[0].Task = "fan" },
			wantErr: `unknown task "fan"`,
		},
		{
			name:   "negative debounce",
			mutate: func(c *Config) { c.Bindings[0].Debounce = -time.Millisecond },
			is:     event.ErrNegativeWindow,
		},
		{
			name:   "bad debounce mode",
			mutate: func(c *Config) { c.Bindings[0].DebounceMode = "sideways" },
			is:     event.ErrUnknownDebounceMode,
		},
		{
			name:    "expression over unknown input",
			mutate:  func(c *Config) { c.Bindings[0].When = "arm && door" },
			wantErr: "bindings[0]",
		},
		{
			name:    "missing expression",
			mutate:  func(c *Config) { c.Bindings[0].When = "" },
			wantErr: "when is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(sample))
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is), "want %v in %v", tt.is, err)
			}
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	cfg.Bindings[0].Operator = "nope"
	cfg.Bindings[1].Task = "ghost"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown operator "nope"`)
	assert.Contains(t, err.Error(), `unknown task "ghost"`)
}

func TestEveryOperatorIsAccepted(t *testing.T) {
	for _, op := range Operators {
		t.Run(op, func(t *testing.T) {
			cfg, err := Parse([]byte(sample))
			require.NoError(t, err)
			cfg.Bindings[0].Operator = op
			assert.NoError(t, cfg.Validate())
		})
	}
}
