// Package repeat turns a held input into press-to-fire-once,
// hold-to-autorepeat actions.
//
// The Simulator has no timers of its own. Its owner calls Tick on a fixed
// interval (100ms in the daemon) and the simulator re-checks every held input
// through a caller-supplied predicate that reads live device state.
package repeat

// DefaultDelayTicks is the number of ticks an input must stay held before
// autorepeat starts.
const DefaultDelayTicks = 7

// HeldFunc reports whether the input that started a task is still held.
type HeldFunc func() bool

type task struct {
	held   HeldFunc
	action func()
	ticks  int
}

// Simulator tracks one repeat task per key.
type Simulator struct {
	delay int
	tasks map[string]*task
	order []string
}

// New returns a simulator that starts repeating after delayTicks ticks.
// Values below 1 use DefaultDelayTicks.
func New(delayTicks int) *Simulator {
	if delayTicks < 1 {
		delayTicks = DefaultDelayTicks
	}
	return &Simulator{
		delay: delayTicks,
		tasks: make(map[string]*task),
	}
}

// Start fires action once and keeps a task that fires it again on every tick
// from the delay onward, for as long as held returns true. Starting a key that
// already has a task replaces it.
func (s *Simulator) Start(key string, held HeldFunc, action func()) {
	action()
	if _, ok := s.tasks[key]; !ok {
		s.order = append(s.order, key)
	}
	s.tasks[key] = &task{held: held, action: action}
}

// Tick advances every task by one interval. A task whose input has been
// released is dropped without firing.
func (s *Simulator) Tick() {
	keys := append([]string(nil), s.order...)
	for _, key := range keys {
		t, ok := s.tasks[key]
		if !ok {
			continue
		}
		if !t.held() {
			s.remove(key)
			continue
		}
		t.ticks++
		if t.ticks >= s.delay {
			t.action()
		}
	}
}

// Cancel drops the task for key, if any.
func (s *Simulator) Cancel(key string) {
	s.remove(key)
}

// Stop drops every task.
func (s *Simulator) Stop() {
	s.tasks = make(map[string]*task)
	s.order = nil
}

// Active returns the number of running tasks.
func (s *Simulator) Active() int {
	return len(s.tasks)
}

func (s *Simulator) remove(key string) {
	if _, ok := s.tasks[key]; !ok {
		return
	}
	delete(s.tasks, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
