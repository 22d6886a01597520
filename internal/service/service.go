// Package service runs the controller input loop.
//
// One goroutine (Service.Run) owns the sampler, the mapper, the configurator,
// the repeat simulator and the navigator. Everything else talks to it through
// events: the UI socket, the HTTP API, the IPC socket, MQTT, the keyboard
// reader and the hotplug watcher all Submit events, and the loop handles them
// one at a time between sampling ticks. Host side effects (activate, back,
// suspend, stop) are queued as commands while handling a step and executed
// after it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"kioskpad/internal/input"
	"kioskpad/internal/mapping"
	"kioskpad/internal/navigator"
	"kioskpad/internal/observer"
	"kioskpad/internal/repeat"
)

var (
	// ErrConfiguratorActive is returned when a capture is started while
	// another one is running.
	ErrConfiguratorActive = errors.New("configurator already active")
	// ErrNoConfigurator is returned when there is no capture to act on.
	ErrNoConfigurator = errors.New("no active configurator")
	// ErrUnknownDevice is returned for a slot with no attached controller.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrUnknownItem is returned when focusing an item the layout lacks.
	ErrUnknownItem = errors.New("unknown item")
	// ErrStopped is returned once Run has exited.
	ErrStopped = errors.New("service stopped")
)

// Rescanner is implemented by sources that can look for new devices on
// demand.
type Rescanner interface {
	Rescan()
}

// Options configures a Service.
type Options struct {
	Source   input.Source
	Store    mapping.Store
	Layouts  navigator.Provider
	Scroller navigator.Scroller
	Host     Host

	Scope            string
	PollInterval     time.Duration
	RepeatInterval   time.Duration
	RepeatDelayTicks int
	Settle           time.Duration
	AutoConfigure    bool
	Background       BackgroundOptions

	Logger *slog.Logger
	// Now is the clock used for configurator settling and the background
	// listener. Defaults to time.Now.
	Now func() time.Time
}

type result struct {
	value any
	err   error
}

type request struct {
	ev    Event
	reply chan result
}

// internal queries answered by the loop
type snapshotQuery struct{}

func (snapshotQuery) eventMarker() {}

type mappingQuery struct{ deviceKey string }

func (mappingQuery) eventMarker() {}

// Service is the input loop.
type Service struct {
	opts   Options
	logger *slog.Logger

	sampler *input.Sampler
	mapper  *mapping.Mapper
	nav     *navigator.Navigator
	repeat  *repeat.Simulator
	combo   *comboListener
	conf    *mapping.Configurator
	visible bool

	cmdQueue []Command

	requests chan request
	done     chan struct{}

	buttons      *observer.List[ButtonEvent]
	raw          *observer.List[input.RawEvent]
	devices      *observer.List[DeviceEvent]
	configurator *observer.List[ConfiguratorEvent]
}

// New builds a service. It does not start sampling until Run is called.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.RepeatInterval <= 0 {
		opts.RepeatInterval = 100 * time.Millisecond
	}
	if opts.Layouts == nil {
		opts.Layouts = navigator.NewLayoutStore()
	}
	logger := opts.Logger

	sampler := input.NewSampler(opts.Source)
	return &Service{
		opts:     opts,
		logger:   logger,
		sampler:  sampler,
		mapper:   mapping.NewMapper(opts.Store, sampler, logger),
		nav:      navigator.New(opts.Layouts, opts.Scroller, opts.Scope, logger),
		repeat:   repeat.New(opts.RepeatDelayTicks),
		combo:    newComboListener(opts.Background, logger),
		visible:  true,
		requests: make(chan request, 64),
		done:     make(chan struct{}),

		buttons:      observer.New[ButtonEvent]("buttons", logger),
		raw:          observer.New[input.RawEvent]("raw", logger),
		devices:      observer.New[DeviceEvent]("devices", logger),
		configurator: observer.New[ConfiguratorEvent]("configurator", logger),
	}
}

// OnButton subscribes to logical button transitions.
func (s *Service) OnButton(fn func(ButtonEvent)) (unsubscribe func()) {
	return s.buttons.Subscribe(fn)
}

// OnRaw subscribes to raw input transitions that are not consumed by the
// configurator.
func (s *Service) OnRaw(fn func(input.RawEvent)) (unsubscribe func()) {
	return s.raw.Subscribe(fn)
}

// OnDevice subscribes to controller attach and detach.
func (s *Service) OnDevice(fn func(DeviceEvent)) (unsubscribe func()) {
	return s.devices.Subscribe(fn)
}

// OnConfigurator subscribes to configurator progress.
func (s *Service) OnConfigurator(fn func(ConfiguratorEvent)) (unsubscribe func()) {
	return s.configurator.Subscribe(fn)
}

// OnFocus subscribes to focus changes.
func (s *Service) OnFocus(fn func(navigator.FocusChange)) (unsubscribe func()) {
	return s.nav.OnFocus(fn)
}

// Run drives the loop until ctx is canceled. Listeners are called from this
// goroutine and must not block.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.done)

	poll := time.NewTicker(s.opts.PollInterval)
	defer poll.Stop()
	rep := time.NewTicker(s.opts.RepeatInterval)
	defer rep.Stop()

	s.logger.Info("input service started",
		"poll_interval", s.opts.PollInterval,
		"repeat_interval", s.opts.RepeatInterval,
		"scope", s.opts.Scope,
	)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			s.logger.Info("input service stopping (context canceled)")
			return nil

		case req := <-s.requests:
			v, err := s.handle(req.ev)
			s.flushCommands()
			if req.reply != nil {
				req.reply <- result{value: v, err: err}
			}

		case now := <-poll.C:
			s.sampleTick(now)
			s.flushCommands()

		case <-rep.C:
			s.repeatTick()
			s.flushCommands()
		}
	}
}

// Submit queues an event without waiting for it to be handled.
func (s *Service) Submit(ev Event) error {
	select {
	case <-s.done:
		return ErrStopped
	default:
	}
	select {
	case s.requests <- request{ev: ev}:
		return nil
	case <-s.done:
		return ErrStopped
	}
}

// Do handles an event on the loop and returns its result.
func (s *Service) Do(ctx context.Context, ev Event) (any, error) {
	select {
	case <-s.done:
		return nil, ErrStopped
	default:
	}
	reply := make(chan result, 1)
	select {
	case s.requests <- request{ev: ev, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrStopped
	}

	select {
	case r := <-reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrStopped
	}
}

// Snapshot returns the current state.
func (s *Service) Snapshot(ctx context.Context) (State, error) {
	v, err := s.Do(ctx, snapshotQuery{})
	if err != nil {
		return State{}, err
	}
	return v.(State), nil
}

// Mapping returns the active mapping of a device key, with live values for
// devices of that key that are attached.
func (s *Service) Mapping(ctx context.Context, deviceKey string) (MappingInfo, error) {
	v, err := s.Do(ctx, mappingQuery{deviceKey: deviceKey})
	if err != nil {
		return MappingInfo{}, err
	}
	return v.(MappingInfo), nil
}

// StartConfigurator starts a capture for the controller in slot.
func (s *Service) StartConfigurator(ctx context.Context, slot int) (ConfiguratorInfo, error) {
	v, err := s.Do(ctx, StartConfigurator{Slot: slot})
	if err != nil {
		return ConfiguratorInfo{}, err
	}
	return v.(ConfiguratorInfo), nil
}

// AbortConfigurator closes the running capture without saving it.
func (s *Service) AbortConfigurator(ctx context.Context) error {
	_, err := s.Do(ctx, AbortConfigurator{})
	return err
}

func (s *Service) shutdown() {
	s.repeat.Stop()
	s.combo.stop()
	if s.conf != nil {
		s.conf.Close()
	}
}

func (s *Service) enqueue(cmds ...Command) {
	s.cmdQueue = append(s.cmdQueue, cmds...)
}

func (s *Service) flushCommands() {
	for len(s.cmdQueue) > 0 {
		cmd := s.cmdQueue[0]
		s.cmdQueue = s.cmdQueue[1:]
		runEffect(s.opts.Host, cmd, s.logger)
	}
}

// ============================================================================
// Event handling
// ============================================================================

func (s *Service) handle(ev Event) (any, error) {
	switch e := ev.(type) {
	case Move:
		d, err := navigator.ParseDirection(e.Direction)
		if err != nil {
			return nil, err
		}
		it, _ := s.nav.Move(d)
		return it, nil

	case Activate:
		s.activate()
		return nil, nil

	case Back:
		s.enqueue(CmdBack{})
		return nil, nil

	case SetVisible:
		s.setVisible(e.Visible)
		return nil, nil

	case Focus:
		if !s.nav.Focus(e.Item) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownItem, e.Item)
		}
		it, _ := s.nav.Focused()
		return it, nil

	case SetScope:
		s.nav.SetScope(e.Scope)
		return nil, nil

	case StartConfigurator:
		dev, ok := s.deviceInSlot(e.Slot)
		if !ok {
			return nil, fmt.Errorf("%w: slot %d", ErrUnknownDevice, e.Slot)
		}
		return s.startConfigurator(dev.ID)

	case AbortConfigurator:
		if s.conf == nil {
			return nil, ErrNoConfigurator
		}
		s.conf.Close()
		return nil, nil

	case ResetConfigurator:
		if s.conf == nil {
			return nil, ErrNoConfigurator
		}
		s.conf.Reset()
		s.configurator.Notify(ConfiguratorEvent{Type: ConfiguratorProgress, Info: configuratorInfo(s.conf)})
		return nil, nil

	case Key:
		s.handleKey(e)
		return nil, nil

	case Rescan:
		if r, ok := s.opts.Source.(Rescanner); ok {
			r.Rescan()
		}
		return nil, nil

	case snapshotQuery:
		return s.state(), nil

	case mappingQuery:
		return s.mappingInfo(e.deviceKey), nil

	default:
		return nil, fmt.Errorf("unsupported event %T", ev)
	}
}

func (s *Service) activate() {
	it, ok := s.nav.Focused()
	if !ok {
		s.logger.Debug("activate with nothing focused")
		return
	}
	s.enqueue(CmdActivate{Item: it})
}

func (s *Service) move(d navigator.Direction) {
	s.nav.Move(d)
}

// setVisible switches between the foreground mode (sampling and repeat) and
// the background mode (combo listener only).
func (s *Service) setVisible(visible bool) {
	if s.visible == visible {
		return
	}
	s.visible = visible
	s.logger.Info("visibility changed", "visible", visible)
	if visible {
		s.combo.stop()
		return
	}
	s.repeat.Stop()
	if s.opts.Background.Enabled {
		s.combo.start(s.opts.Now())
	}
}

// handleKey applies the keyboard policy. Keys are ignored while the UI is
// hidden; another application owns the keyboard then.
func (s *Service) handleKey(e Key) {
	if !s.visible {
		return
	}
	if e.Value != input.KeyValuePress && e.Value != input.KeyValueRepeat {
		return
	}
	switch e.Code {
	case input.KeyUp:
		s.move(navigator.Up)
	case input.KeyDown:
		s.move(navigator.Down)
	case input.KeyLeft:
		s.move(navigator.Left)
	case input.KeyRight:
		s.move(navigator.Right)
	case input.KeyEnter, input.KeyKPEnter, input.KeySpace:
		if e.Value == input.KeyValuePress {
			s.activate()
		}
	case input.KeyEsc:
		if e.Value != input.KeyValuePress {
			return
		}
		if s.conf != nil {
			s.conf.Close()
			return
		}
		s.enqueue(CmdBack{})
	case input.KeyBackspace:
		if e.Value == input.KeyValuePress {
			s.enqueue(CmdBack{})
		}
	}
}

// ============================================================================
// Sampling
// ============================================================================

func (s *Service) sampleTick(now time.Time) {
	if !s.visible {
		s.enqueue(s.combo.step(now, s.sampler.Peek)...)
		return
	}

	p := s.sampler.Sample()

	if c := s.conf; c != nil {
		wasSettling := c.Settling()
		c.Tick(now)
		if !c.Closed() && wasSettling && !c.Settling() {
			s.configurator.Notify(ConfiguratorEvent{Type: ConfiguratorProgress, Info: configuratorInfo(c)})
		}
	}

	for _, d := range p.Detached {
		s.logger.Info("device detached", "slot", d.ID.Slot, "device", d.ID.Name)
		if s.conf != nil && s.conf.Device() == d.ID {
			s.conf.Close()
		}
		s.devices.Notify(DeviceEvent{Attached: false, Device: s.deviceInfo(d)})
	}

	// Devices whose capture began this tick. Their events are the first
	// observation of resting state, not presses.
	var baseline map[input.DeviceID]bool
	for _, d := range p.Attached {
		origin := s.mapper.Load(d.Key())
		s.logger.Info("device attached", "slot", d.ID.Slot, "device", d.ID.Name, "mapping", string(origin))
		s.devices.Notify(DeviceEvent{Attached: true, Device: s.deviceInfo(d)})
		if origin == mapping.OriginStandard && s.opts.AutoConfigure && s.conf == nil {
			if _, err := s.startConfigurator(d.ID); err != nil {
				s.logger.Warn("auto-configure failed", "slot", d.ID.Slot, "error", err)
				continue
			}
			if baseline == nil {
				baseline = make(map[input.DeviceID]bool)
			}
			baseline[d.ID] = true
		}
	}

	for _, ev := range p.Events {
		// While a capture runs, its device's input belongs to it alone.
		if c := s.conf; c != nil && c.Device() == ev.Device {
			if !baseline[ev.Device] {
				c.Feed(ev, now)
			}
			continue
		}
		s.raw.Notify(ev)

		key := mapping.KeyOf(ev)
		button, ok := s.mapper.Resolve(ev.Device, key)
		if !ok {
			continue
		}
		be := ButtonEvent{
			Device:   ev.Device,
			Button:   button,
			State:    ev.State,
			Key:      key,
			RawKind:  ev.Kind.String(),
			RawIndex: ev.Index,
			RawSign:  ev.Sign,
			RawValue: ev.Value,
		}
		s.buttons.Notify(be)
		s.dispatch(be)
	}
}

func (s *Service) repeatTick() {
	if !s.visible {
		return
	}
	s.repeat.Tick()
}

// dispatch maps a logical press to navigation and host actions.
func (s *Service) dispatch(be ButtonEvent) {
	if !be.Pressed() {
		return
	}
	switch be.Button {
	case mapping.Up, mapping.Down, mapping.Left, mapping.Right:
		d := buttonDirection(be.Button)
		binding, ok := s.mapper.Binding(be.Device, be.Key)
		if !ok {
			return
		}
		held := func() bool { return math.Round(binding.ReadCurrentValue()) >= 1 }
		s.repeat.Start(be.Device.String()+"/"+string(be.Button), held, func() { s.move(d) })
	case mapping.A:
		s.activate()
	case mapping.B:
		s.enqueue(CmdBack{})
	}
}

func buttonDirection(b mapping.Button) navigator.Direction {
	switch b {
	case mapping.Up:
		return navigator.Up
	case mapping.Down:
		return navigator.Down
	case mapping.Left:
		return navigator.Left
	default:
		return navigator.Right
	}
}

// ============================================================================
// Configurator
// ============================================================================

func (s *Service) startConfigurator(id input.DeviceID) (ConfiguratorInfo, error) {
	if s.conf != nil {
		return ConfiguratorInfo{}, ErrConfiguratorActive
	}
	c := mapping.NewConfigurator(id, s.opts.Settle)
	c.OnCapture(func(c *mapping.Configurator, b mapping.Button, k mapping.Key) {
		s.logger.Debug("configurator captured", "session", c.ID(), "button", string(b), "key", string(k))
		s.configurator.Notify(ConfiguratorEvent{Type: ConfiguratorProgress, Info: configuratorInfo(c), Captured: b, Key: k})
	})
	c.OnClose(s.configuratorClosed)

	s.conf = c
	s.repeat.Stop()
	s.logger.Info("configurator started", "session", c.ID(), "slot", id.Slot, "device", id.Name)

	info := configuratorInfo(c)
	s.configurator.Notify(ConfiguratorEvent{Type: ConfiguratorStarted, Info: info})
	return info, nil
}

func (s *Service) configuratorClosed(c *mapping.Configurator) {
	if s.conf == c {
		s.conf = nil
	}
	if t, ok := c.Mapping(); ok {
		if err := s.mapper.Commit(c.Device().Key(), t); err != nil {
			s.logger.Error("failed to save mapping", "session", c.ID(), "device", c.Device().Key(), "error", err)
		} else {
			s.logger.Info("mapping saved", "session", c.ID(), "device", c.Device().Key())
		}
	} else {
		s.logger.Info("configurator aborted", "session", c.ID())
	}
	s.configurator.Notify(ConfiguratorEvent{Type: ConfiguratorClosed, Info: configuratorInfo(c)})
}

// ============================================================================
// Introspection
// ============================================================================

func (s *Service) deviceInSlot(slot int) (input.Device, bool) {
	for _, d := range s.sampler.Devices() {
		if d.ID.Slot == slot {
			return d, true
		}
	}
	return input.Device{}, false
}

func (s *Service) deviceInfo(d input.Device) DeviceInfo {
	_, origin := s.mapper.Table(d.Key())
	return DeviceInfo{
		Slot:    d.ID.Slot,
		Name:    d.ID.Name,
		Key:     d.Key(),
		Origin:  origin,
		Axes:    len(d.Axes),
		Buttons: len(d.Buttons),
	}
}

func (s *Service) state() State {
	st := State{
		Visible:   s.visible,
		Scope:     s.nav.Scope(),
		Focused:   s.nav.FocusedID(),
		Devices:   []DeviceInfo{},
		Repeating: s.repeat.Active(),
	}
	for _, d := range s.sampler.Devices() {
		st.Devices = append(st.Devices, s.deviceInfo(d))
	}
	if s.conf != nil {
		info := configuratorInfo(s.conf)
		st.Configurator = &info
	}
	return st
}

func (s *Service) mappingInfo(deviceKey string) MappingInfo {
	t, origin := s.mapper.Table(deviceKey)
	info := MappingInfo{
		DeviceKey: deviceKey,
		Origin:    origin,
		Table:     t.Clone(),
		Buttons:   make(map[mapping.Button]ButtonBinding),
	}

	var dev *input.Device
	for _, d := range s.sampler.Devices() {
		if d.Key() == deviceKey {
			dev = &d
			break
		}
	}
	for _, b := range mapping.CaptureOrder {
		if dev == nil {
			for _, k := range t.Keys() {
				if t[k] == b {
					info.Buttons[b] = ButtonBinding{Key: k}
					break
				}
			}
			continue
		}
		if binding, ok := s.mapper.InverseResolve(dev.ID, b); ok {
			info.Buttons[b] = ButtonBinding{Key: binding.Key, Value: binding.ReadCurrentValue()}
		}
	}
	return info
}
