// Package config loads the daemon configuration: a YAML file declaring
// inputs, tasks and bindings, with a handful of runtime settings that can be
// overridden from the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/trigger-loop/internal/event"
	"github.com/sweeney/trigger-loop/internal/expr"
	"github.com/sweeney/trigger-loop/internal/gpio"
	"github.com/sweeney/trigger-loop/internal/logger"
)

// Defaults applied to fields left empty.
const (
	DefaultPoll      = 20 * time.Millisecond
	DefaultHeartbeat = 15 * time.Minute
	DefaultBroker    = "tcp://localhost:1883"
	DefaultHTTP      = ":8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultClientID  = "trigger-loop"
)

// Operators lists the binding operator names.
var Operators = []string{
	"on_true",
	"on_false",
	"while_true",
	"while_true_once",
	"while_false",
	"while_false_once",
	"toggle_on_true",
	"toggle_on_false",
	"cancel_on_true",
	"cancel_on_false",
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config is the daemon configuration.
type Config struct {
	Poll      time.Duration `yaml:"poll"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	Broker    string        `yaml:"broker"`
	HTTP      string        `yaml:"http"`
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`
	ClientID  string        `yaml:"client_id"`
	Chip      string        `yaml:"chip"`

	Inputs   []Input   `yaml:"inputs"`
	Tasks    []Task    `yaml:"tasks"`
	Bindings []Binding `yaml:"bindings"`
}

// Input is a GPIO line exposed to binding expressions under Name.
type Input struct {
	Name      string `yaml:"name"`
	Line      int    `yaml:"line"`
	ActiveLow bool   `yaml:"active_low"`
}

// Task declares a schedulable task.
type Task struct {
	Name     string        `yaml:"name"`
	Timeout  time.Duration `yaml:"timeout"`
	Requires []string      `yaml:"requires"`
}

// Binding attaches a task to a condition.
type Binding struct {
	// When is a CEL expression over input names.
	When         string        `yaml:"when"`
	Debounce     time.Duration `yaml:"debounce"`
	DebounceMode string        `yaml:"debounce_mode"`
	Operator     string        `yaml:"operator"`
	Task         string        `yaml:"task"`
	// Interruptible defaults to true.
	Interruptible *bool `yaml:"interruptible"`
}

// IsInterruptible reports the effective interruptible flag.
func (b Binding) IsInterruptible() bool {
	return b.Interruptible == nil || *b.Interruptible
}

// Load reads path, applies defaults and environment overrides, and validates
// the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML and fills in defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Poll == 0 {
		c.Poll = DefaultPoll
	}
	if c.Heartbeat == 0 {
		c.Heartbeat = DefaultHeartbeat
	}
	if c.Broker == "" {
		c.Broker = DefaultBroker
	}
	if c.HTTP == "" {
		c.HTTP = DefaultHTTP
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.Chip == "" {
		c.Chip = gpio.DefaultChip
	}
}

// InputNames returns the declared input names in file order.
func (c *Config) InputNames() []string {
	names := make([]string, len(c.Inputs))
	for i, in := range c.Inputs {
		names[i] = in.Name
	}
	return names
}

// Lines converts the inputs to GPIO line descriptions.
func (c *Config) Lines() []gpio.Line {
	lines := make([]gpio.Line, len(c.Inputs))
	for i, in := range c.Inputs {
		lines[i] = gpio.Line{Name: in.Name, Offset: in.Line, ActiveLow: in.ActiveLow}
	}
	return lines
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Poll <= 0 {
		fail("poll: must be positive, got %s", c.Poll)
	}
	if c.Heartbeat < 0 {
		fail("heartbeat: must not be negative, got %s", c.Heartbeat)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		fail("log_level: %w", err)
	}
	if c.LogFormat != logger.FormatText && c.LogFormat != logger.FormatJSON {
		fail("log_format: must be %q or %q, got %q", logger.FormatText, logger.FormatJSON, c.LogFormat)
	}
	if len(c.Inputs) == 0 {
		fail("inputs: at least one input is required")
	}

	inputs := make(map[string]bool)
	lines := make(map[int]string)
	for i, in := range c.Inputs {
		switch {
		case !identifier.MatchString(in.Name):
			fail("inputs[%d]: name %q is not an identifier", i, in.Name)
		case inputs[in.Name]:
			fail("inputs[%d]: duplicate name %q", i, in.Name)
		}
		inputs[in.Name] = true
		if in.Line < 0 {
			fail("inputs[%d]: line must not be negative", i)
		} else if other, ok := lines[in.Line]; ok {
			fail("inputs[%d]: line %d already used by %q", i, in.Line, other)
		}
		lines[in.Line] = in.Name
	}

	tasks := make(map[string]bool)
	for i, t := range c.Tasks {
		switch {
		case t.Name == "":
			fail("tasks[%d]: name is required", i)
		case tasks[t.Name]:
			fail("tasks[%d]: duplicate name %q", i, t.Name)
		}
		tasks[t.Name] = true
		if t.Timeout < 0 {
			fail("tasks[%d]: timeout must not be negative", i)
		}
	}

	env, err := expr.NewEnv(c.InputNames())
	if err != nil {
		// Only reachable with invalid input names, already reported.
		env = nil
	}
	for i, b := range c.Bindings {
		if b.When == "" {
			fail("bindings[%d]: when is required", i)
		} else if env != nil {
			if _, err := env.Compile(b.When); err != nil {
				fail("bindings[%d]: %w", i, err)
			}
		}
		if b.Debounce < 0 {
			fail("bindings[%d]: %w", i, event.ErrNegativeWindow)
		}
		if _, err := event.ParseDebounceMode(b.DebounceMode); err != nil {
			fail("bindings[%d]: %w", i, err)
		}
		if !slices.Contains(Operators, b.Operator) {
			fail("bindings[%d]: unknown operator %q", i, b.Operator)
		}
		if !tasks[b.Task] {
			fail("bindings[%d]: unknown task %q", i, b.Task)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
