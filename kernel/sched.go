package kernel

// Task is a schedulable unit of work. The core never runs it; the driver looks
// up the work bound to the returned TaskID.
type Task struct {
	Name string

	// Priority ranks eligible tasks; higher wins, ties go to the lower id.
	Priority uint32
	// Period is the minimum number of ticks between activations. Zero marks
	// an aperiodic task.
	Period Tick
	// Deadline is the number of ticks after the last start within which the
	// next start must happen.
	Deadline Tick
	// ExecutionTime is the declared cost in ticks. Only SystemLoad reads it.
	ExecutionTime Tick
	// Periodic tasks re-arm after running. Schedule never picks the others,
	// nor a periodic task with a zero Period.
	Periodic bool

	// LastExecution is the tick of the last OnTaskStarted, or NeverRun.
	// AddTask overwrites it.
	LastExecution Tick
}

func (t *Task) eligible(now Tick) bool {
	if !t.Periodic || t.Period == 0 {
		return false
	}
	if t.LastExecution == NeverRun {
		return true
	}
	return now-t.LastExecution >= t.Period
}

func (t *Task) missed(now Tick) bool {
	if t.LastExecution == NeverRun {
		return false
	}
	return now-t.LastExecution > t.Deadline
}

// Scheduler owns the task table and the tick counter.
type Scheduler struct {
	tasks    [MaxTasks]Task
	live     uint64
	capacity int
	now      Tick
}

// NewScheduler returns an empty table with capacity slots, clamped to
// [1, MaxTasks]. The tick counter starts at zero.
func NewScheduler(capacity int) *Scheduler {
	return &Scheduler{capacity: clampCapacity(capacity, MaxTasks)}
}

// Capacity returns the number of task slots.
func (s *Scheduler) Capacity() int { return s.capacity }

// Now returns the current tick.
func (s *Scheduler) Now() Tick { return s.now }

// Tick advances the tick counter by one.
func (s *Scheduler) Tick() { s.now++ }

// Len returns the number of live tasks.
func (s *Scheduler) Len() int {
	n := 0
	for v := s.live; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// AddTask places t in the first free slot.
func (s *Scheduler) AddTask(t Task) (TaskID, error) {
	for i := 0; i < s.capacity; i++ {
		if s.live&(1<<uint(i)) != 0 {
			continue
		}
		t.LastExecution = NeverRun
		s.tasks[i] = t
		s.live |= 1 << uint(i)
		return TaskID(i), nil
	}
	return 0, slotErr(ErrNoAvailableSlots, "task", -1)
}

// RemoveTask frees the slot behind id. It takes effect for the next Schedule.
func (s *Scheduler) RemoveTask(id TaskID) error {
	if err := s.check(id); err != nil {
		return err
	}
	s.live &^= 1 << uint(id)
	s.tasks[id] = Task{}
	return nil
}

// Task returns a copy of the task behind id.
func (s *Scheduler) Task(id TaskID) (Task, error) {
	if err := s.check(id); err != nil {
		return Task{}, err
	}
	return s.tasks[id], nil
}

// Each calls fn for every live task in id order until fn returns false.
func (s *Scheduler) Each(fn func(TaskID, Task) bool) {
	for i := 0; i < s.capacity; i++ {
		if s.live&(1<<uint(i)) == 0 {
			continue
		}
		if !fn(TaskID(i), s.tasks[i]) {
			return
		}
	}
}

// Schedule picks the eligible periodic task with the highest priority, lowest
// id first among equals. It does not change any state, so repeated calls agree
// until OnTaskStarted or Tick.
func (s *Scheduler) Schedule() (TaskID, bool) {
	best := -1
	for i := 0; i < s.capacity; i++ {
		if s.live&(1<<uint(i)) == 0 {
			continue
		}
		t := &s.tasks[i]
		if !t.eligible(s.now) {
			continue
		}
		// Strictly greater keeps the lowest id on ties.
		if best < 0 || t.Priority > s.tasks[best].Priority {
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return TaskID(best), true
}

// OnTaskStarted records that the caller began running id at the current tick,
// which opens the task's next eligibility window.
func (s *Scheduler) OnTaskStarted(id TaskID) error {
	if err := s.check(id); err != nil {
		return err
	}
	s.tasks[id].LastExecution = s.now
	return nil
}

// CheckDeadlineMiss reports whether more than Deadline ticks have passed since
// id last started. Tasks that never started, and unknown ids, never miss.
func (s *Scheduler) CheckDeadlineMiss(id TaskID) bool {
	if s.check(id) != nil {
		return false
	}
	return s.tasks[id].missed(s.now)
}

// MissMask returns a bitmask with bit i set when task i misses its deadline.
func (s *Scheduler) MissMask() uint64 {
	var mask uint64
	for i := 0; i < s.capacity; i++ {
		if s.live&(1<<uint(i)) == 0 {
			continue
		}
		if s.tasks[i].missed(s.now) {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// SystemLoad estimates utilisation as the sum of ExecutionTime/Period over
// periodic tasks. Tasks with a zero period add nothing.
func (s *Scheduler) SystemLoad() float64 {
	var load float64
	for i := 0; i < s.capacity; i++ {
		if s.live&(1<<uint(i)) == 0 {
			continue
		}
		t := &s.tasks[i]
		if !t.Periodic || t.Period == 0 {
			continue
		}
		load += float64(t.ExecutionTime) / float64(t.Period)
	}
	return load
}

func (s *Scheduler) check(id TaskID) error {
	if int(id) >= s.capacity {
		return slotErr(ErrInvalidTaskID, "task", int(id))
	}
	if s.live&(1<<uint(id)) == 0 {
		return slotErr(ErrTaskNotFound, "task", int(id))
	}
	return nil
}
