// Package config loads the driver configuration: table capacities, monitor
// thresholds, and the task, resource and interrupt sets registered at boot.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"rtcore/kernel"
)

// Work kinds a task can be bound to.
const (
	WorkSample = "sample"
	WorkAlerts = "alerts"
	WorkReport = "report"
	WorkBuffer = "buffer"
	WorkIdle   = "idle"
)

// Work kinds an interrupt line can be bound to.
const (
	IRQCount  = "count"
	IRQSample = "sample"
)

var (
	taskWork = map[string]bool{WorkSample: true, WorkAlerts: true, WorkReport: true, WorkBuffer: true, WorkIdle: true}
	irqWork  = map[string]bool{IRQCount: true, IRQSample: true}
)

type Capacity struct {
	Tasks     int `yaml:"tasks"`
	Resources int `yaml:"resources"`
	Lines     int `yaml:"lines"`
}

type Monitor struct {
	LoadThreshold float64 `yaml:"load_threshold"`
	MissLimit     int     `yaml:"miss_limit"`
	OverloadLimit int     `yaml:"overload_limit"`
}

type Task struct {
	Name          string `yaml:"name"`
	Priority      uint32 `yaml:"priority"`
	Period        uint64 `yaml:"period"`
	Deadline      uint64 `yaml:"deadline"`
	ExecutionTime uint64 `yaml:"execution_time"`
	// Periodic defaults to true when a period is set.
	Periodic *bool  `yaml:"periodic,omitempty"`
	Work     string `yaml:"work"`
}

// IsPeriodic resolves the Periodic default.
func (t Task) IsPeriodic() bool {
	if t.Periodic != nil {
		return *t.Periodic
	}
	return t.Period > 0
}

// Kernel converts the entry into a kernel task.
func (t Task) Kernel() kernel.Task {
	return kernel.Task{
		Name:          t.Name,
		Priority:      t.Priority,
		Period:        kernel.Tick(t.Period),
		Deadline:      kernel.Tick(t.Deadline),
		ExecutionTime: kernel.Tick(t.ExecutionTime),
		Periodic:      t.IsPeriodic(),
	}
}

type Resource struct {
	Name       string `yaml:"name"`
	Priority   uint32 `yaml:"priority"`
	MemorySize uint32 `yaml:"memory_size"`
	Critical   bool   `yaml:"critical"`
}

// Kernel converts the entry into a kernel resource descriptor.
func (r Resource) Kernel() kernel.Resource {
	return kernel.Resource{Name: r.Name, Priority: r.Priority, MemorySize: r.MemorySize, Critical: r.Critical}
}

type Interrupt struct {
	Line    int    `yaml:"line"`
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	Work    string `yaml:"work"`
}

// Config is the complete boot configuration.
type Config struct {
	Capacity Capacity `yaml:"capacity"`
	Monitor  Monitor  `yaml:"monitor"`
	// RenderEvery is the status console refresh interval in ticks.
	RenderEvery int         `yaml:"render_every"`
	Tasks       []Task      `yaml:"tasks"`
	Resources   []Resource  `yaml:"resources"`
	Interrupts  []Interrupt `yaml:"interrupts"`
}

// MonitorConfig converts the monitor thresholds.
func (c *Config) MonitorConfig() kernel.MonitorConfig {
	return kernel.MonitorConfig{
		LoadThreshold: c.Monitor.LoadThreshold,
		MissLimit:     c.Monitor.MissLimit,
		OverloadLimit: c.Monitor.OverloadLimit,
	}
}

func boolp(b bool) *bool { return &b }

// Default returns the built-in environmental monitoring workload.
func Default() Config {
	return Config{
		Capacity:    Capacity{Tasks: 8, Resources: 8, Lines: 10},
		Monitor:     Monitor{LoadThreshold: 0.9, MissLimit: 3, OverloadLimit: 3},
		RenderEvery: 10,
		Tasks: []Task{
			{Name: "sample", Priority: 5, Period: 10, Deadline: 12, ExecutionTime: 2, Work: WorkSample},
			{Name: "alerts", Priority: 7, Period: 10, Deadline: 12, ExecutionTime: 1, Work: WorkAlerts},
			{Name: "buffer", Priority: 4, Period: 25, Deadline: 30, ExecutionTime: 1, Work: WorkBuffer},
			{Name: "report", Priority: 2, Period: 50, Deadline: 60, ExecutionTime: 3, Work: WorkReport},
			{Name: "maintenance", Priority: 1, Periodic: boolp(false), Work: WorkIdle},
		},
		Resources: []Resource{
			{Name: "uart-tx", Priority: 3, MemorySize: 256, Critical: true},
			{Name: "adc-dma", Priority: 5, MemorySize: 512, Critical: true},
			{Name: "log-ring", Priority: 1, MemorySize: 1024},
		},
		Interrupts: []Interrupt{
			{Line: 0, Name: "adc-ready", Enabled: true, Work: IRQSample},
			{Line: 1, Name: "button", Enabled: true, Work: IRQCount},
			{Line: 2, Name: "uart-rx", Enabled: false, Work: IRQCount},
		},
	}
}

// Load reads a YAML configuration file. Unknown keys are rejected.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses and validates a YAML configuration.
func Decode(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("yaml decode: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Capacity.Tasks == 0 {
		c.Capacity.Tasks = def.Capacity.Tasks
	}
	if c.Capacity.Resources == 0 {
		c.Capacity.Resources = def.Capacity.Resources
	}
	if c.Capacity.Lines == 0 {
		c.Capacity.Lines = def.Capacity.Lines
	}
	if c.RenderEvery == 0 {
		c.RenderEvery = def.RenderEvery
	}
}

// Validate checks capacities against the kernel limits and the task,
// resource and interrupt sets against the capacities.
func (c *Config) Validate() error {
	if c.Capacity.Tasks < 1 || c.Capacity.Tasks > kernel.MaxTasks {
		return fmt.Errorf("capacity.tasks %d out of range [1, %d]", c.Capacity.Tasks, kernel.MaxTasks)
	}
	if c.Capacity.Resources < 1 || c.Capacity.Resources > kernel.MaxResources {
		return fmt.Errorf("capacity.resources %d out of range [1, %d]", c.Capacity.Resources, kernel.MaxResources)
	}
	if c.Capacity.Lines < 1 || c.Capacity.Lines > kernel.MaxLines {
		return fmt.Errorf("capacity.lines %d out of range [1, %d]", c.Capacity.Lines, kernel.MaxLines)
	}
	if c.RenderEvery < 0 {
		return fmt.Errorf("render_every %d must not be negative", c.RenderEvery)
	}
	if c.Monitor.LoadThreshold < 0 || c.Monitor.MissLimit < 0 || c.Monitor.OverloadLimit < 0 {
		return errors.New("monitor thresholds must not be negative")
	}

	if len(c.Tasks) > c.Capacity.Tasks {
		return fmt.Errorf("%d tasks exceed capacity.tasks %d", len(c.Tasks), c.Capacity.Tasks)
	}
	seen := make(map[string]bool, len(c.Tasks))
	for i, t := range c.Tasks {
		if t.Name == "" {
			return fmt.Errorf("task %d: name is required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate task name %q", t.Name)
		}
		seen[t.Name] = true
		if !taskWork[t.Work] {
			return fmt.Errorf("task %q: unknown work %q", t.Name, t.Work)
		}
		if t.IsPeriodic() && t.Period == 0 {
			return fmt.Errorf("task %q: periodic task needs a period", t.Name)
		}
	}

	if len(c.Resources) > c.Capacity.Resources {
		return fmt.Errorf("%d resources exceed capacity.resources %d", len(c.Resources), c.Capacity.Resources)
	}

	lines := make(map[int]bool, len(c.Interrupts))
	for _, in := range c.Interrupts {
		if in.Line < 0 || in.Line >= c.Capacity.Lines {
			return fmt.Errorf("interrupt %q: line %d out of range [0, %d)", in.Name, in.Line, c.Capacity.Lines)
		}
		if lines[in.Line] {
			return fmt.Errorf("interrupt line %d bound twice", in.Line)
		}
		lines[in.Line] = true
		if !irqWork[in.Work] {
			return fmt.Errorf("interrupt %q: unknown work %q", in.Name, in.Work)
		}
	}
	return nil
}
