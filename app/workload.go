package app

import (
	"errors"
	"fmt"
	"math"

	"rtcore/config"
	"rtcore/kernel"
)

const (
	envRingSize  = 50
	alertHistory = 10
	reportWindow = 10

	airQualityLimit = 100.0 // ppm
)

var ErrSensorRange = errors.New("sensor reading out of range")

// Reading is one environmental sample.
type Reading struct {
	Tick        kernel.Tick
	Temperature float64 // °C
	Humidity    float64 // %RH
	AirQuality  float64 // ppm CO2
	Pressure    float64 // kPa
}

func (r Reading) String() string {
	return fmt.Sprintf("T:%.1fC,H:%.1f%%,AQ:%.1fppm,P:%.1fkPa,T:%d",
		r.Temperature, r.Humidity, r.AirQuality, r.Pressure, r.Tick)
}

func (r Reading) validate() error {
	switch {
	case r.Temperature < -40 || r.Temperature > 125:
		return fmt.Errorf("temperature %.1f: %w", r.Temperature, ErrSensorRange)
	case r.Humidity < 0 || r.Humidity > 100:
		return fmt.Errorf("humidity %.1f: %w", r.Humidity, ErrSensorRange)
	case r.AirQuality < 0 || r.AirQuality > 10000:
		return fmt.Errorf("air quality %.1f: %w", r.AirQuality, ErrSensorRange)
	case r.Pressure < 30 || r.Pressure > 110:
		return fmt.Errorf("pressure %.1f: %w", r.Pressure, ErrSensorRange)
	}
	return nil
}

// synthReading produces a deterministic sample for tick. The waves are slow
// enough that air quality crosses its alert limit for a few samples per cycle.
func synthReading(now kernel.Tick) Reading {
	t := float64(now)
	return Reading{
		Tick:        now,
		Temperature: 22 + 8*math.Sin(t/90),
		Humidity:    55 + 25*math.Sin(t/70+1),
		AirQuality:  60 + 50*math.Sin(t/45),
		Pressure:    101.3 + 1.5*math.Sin(t/200),
	}
}

// envRing stores the most recent readings in a fixed ring.
type envRing struct {
	buf  [envRingSize]Reading
	next int
	n    int
}

func (r *envRing) push(x Reading) {
	r.buf[r.next] = x
	r.next = (r.next + 1) % envRingSize
	if r.n < envRingSize {
		r.n++
	}
}

func (r *envRing) len() int { return r.n }

func (r *envRing) latest() (Reading, bool) {
	if r.n == 0 {
		return Reading{}, false
	}
	return r.buf[(r.next+envRingSize-1)%envRingSize], true
}

// average returns the mean of the newest count readings. It fails when
// count is zero or exceeds the number stored.
func (r *envRing) average(count int) (Reading, bool) {
	if count <= 0 || count > r.n {
		return Reading{}, false
	}
	var sum Reading
	for i := 0; i < count; i++ {
		x := r.buf[(r.next+envRingSize-1-i)%envRingSize]
		sum.Temperature += x.Temperature
		sum.Humidity += x.Humidity
		sum.AirQuality += x.AirQuality
		sum.Pressure += x.Pressure
	}
	latest, _ := r.latest()
	c := float64(count)
	return Reading{
		Tick:        latest.Tick,
		Temperature: sum.Temperature / c,
		Humidity:    sum.Humidity / c,
		AirQuality:  sum.AirQuality / c,
		Pressure:    sum.Pressure / c,
	}, true
}

type AlertLevel uint8

const (
	AlertInfo AlertLevel = iota
	AlertWarning
	AlertCritical
)

func (l AlertLevel) String() string {
	switch l {
	case AlertInfo:
		return "INFO"
	case AlertWarning:
		return "WARNING"
	case AlertCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

type Alert struct {
	Level   AlertLevel
	Message string
	Value   float64
	Tick    kernel.Tick
}

func (a Alert) String() string {
	return fmt.Sprintf("ALERT[%s]: %s - value %.1f at %d", a.Level, a.Message, a.Value, a.Tick)
}

// alertLog keeps whether each of the last checks raised anything, plus the
// alerts themselves.
type alertLog struct {
	raised [alertHistory]bool
	recent [alertHistory]Alert
	checks int
	total  int
}

func evaluate(r Reading) []Alert {
	var out []Alert
	if r.AirQuality > airQualityLimit {
		out = append(out, Alert{Level: AlertWarning, Message: "air quality critical", Value: r.AirQuality, Tick: r.Tick})
	}
	if r.Temperature > 35 || r.Temperature < 5 {
		out = append(out, Alert{Level: AlertCritical, Message: "temperature out of range", Value: r.Temperature, Tick: r.Tick})
	}
	if r.Humidity > 90 || r.Humidity < 10 {
		out = append(out, Alert{Level: AlertWarning, Message: "humidity out of range", Value: r.Humidity, Tick: r.Tick})
	}
	return out
}

func (l *alertLog) record(alerts []Alert) {
	l.raised[l.checks%alertHistory] = len(alerts) > 0
	l.checks++
	for _, a := range alerts {
		l.recent[l.total%alertHistory] = a
		l.total++
	}
}

// frequency returns the percentage of the last ten checks that raised an
// alert.
func (l *alertLog) frequency() float64 {
	n := 0
	for _, r := range l.raised {
		if r {
			n++
		}
	}
	return float64(n) / alertHistory * 100
}

// last returns the newest alert.
func (l *alertLog) last() (Alert, bool) {
	if l.total == 0 {
		return Alert{}, false
	}
	return l.recent[(l.total-1)%alertHistory], true
}

// taskFunc is the work bound to a scheduled task.
type taskFunc func(s *System, id kernel.TaskID) error

// irqFunc is the bottom half bound to an interrupt line.
type irqFunc func(s *System, l kernel.Line) error

var taskCatalogue = map[string]taskFunc{
	config.WorkSample: workSample,
	config.WorkAlerts: workAlerts,
	config.WorkReport: workReport,
	config.WorkBuffer: workBuffer,
	config.WorkIdle:   func(*System, kernel.TaskID) error { return nil },
}

var irqCatalogue = map[string]irqFunc{
	config.IRQCount:  irqCount,
	config.IRQSample: irqSample,
}

func (s *System) sample() error {
	r := s.sensor(s.sched.Now())
	if err := r.validate(); err != nil {
		return err
	}
	s.env.push(r)
	return nil
}

func workSample(s *System, _ kernel.TaskID) error {
	return s.sample()
}

func workAlerts(s *System, _ kernel.TaskID) error {
	r, ok := s.env.latest()
	if !ok {
		return nil
	}
	alerts := evaluate(r)
	s.alerts.record(alerts)
	for _, a := range alerts {
		s.logf("%s", a)
	}
	return nil
}

func workReport(s *System, _ kernel.TaskID) error {
	r, ok := s.env.latest()
	if !ok {
		return nil
	}
	s.logf("report: %s", r)
	n := reportWindow
	if n > s.env.len() {
		n = s.env.len()
	}
	if avg, ok := s.env.average(n); ok {
		s.logf("report: avg(%d) T:%.1fC,H:%.1f%%,AQ:%.1fppm,P:%.1fkPa alerts=%.0f%%",
			n, avg.Temperature, avg.Humidity, avg.AirQuality, avg.Pressure, s.alerts.frequency())
	}
	return nil
}

// workBuffer borrows a transmit buffer from the resource table for the
// duration of one run.
func workBuffer(s *System, _ kernel.TaskID) error {
	h, err := s.res.Allocate(kernel.Resource{Name: "comm-buffer", Priority: 1, MemorySize: commBufferSize})
	if err != nil {
		return fmt.Errorf("comm buffer: %w", err)
	}
	return s.res.Deallocate(h)
}

const commBufferSize = 128

func irqCount(s *System, l kernel.Line) error {
	s.logf("irq %d (%s): count=%d", l, s.lines[l].name, s.router.Count(l))
	return nil
}

func irqSample(s *System, _ kernel.Line) error {
	return s.sample()
}
