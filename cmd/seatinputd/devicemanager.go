package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	evdev "github.com/gvalkov/golang-evdev"

	"github.com/sizeofvoid/libopeninput-sub000/accel"
	"github.com/sizeofvoid/libopeninput-sub000/devconfig"
	"github.com/sizeofvoid/libopeninput-sub000/dispatch"
	"github.com/sizeofvoid/libopeninput-sub000/event"
	"github.com/sizeofvoid/libopeninput-sub000/lid"
	"github.com/sizeofvoid/libopeninput-sub000/quirks"
	"github.com/sizeofvoid/libopeninput-sub000/seat"
	"github.com/sizeofvoid/libopeninput-sub000/timer"
)


// kind classifies a discovered evdev node into the dispatch pipeline it
// should run, standing in for the quirks-and-capability classification a
// real device manager performs before handing a device to the core.
type kind int

const (
	kindUnknown kind = iota
	kindTouchpad
	kindMouse
	kindTrackpoint
	kindKeyboard
	kindSwitch
)

func (k kind) String() string {
	switch k {
	case kindTouchpad:
		return "touchpad"
	case kindMouse:
		return "mouse"
	case kindTrackpoint:
		return "trackpoint"
	case kindKeyboard:
		return "keyboard"
	case kindSwitch:
		return "switch"
	default:
		return "unknown"
	}
}

// classify inspects a device's reported capability bits to pick the
// dispatch kind. Name-based hints are used only as a tie-breaker for
// pointing sticks, which advertise the same REL_X/REL_Y surface as a
// mouse.
func classify(dev *evdev.InputDevice) kind {
	caps := dev.Capabilities
	hasAbsMT := false
	hasAbsX := false
	hasRelXY := false
	hasKeyRow := false
	hasSW := false

	for capType, codes := range caps {
		switch capType.Type {
		case evdev.EV_ABS:
			for _, c := range codes {
				if c.Code == evdev.ABS_MT_SLOT || c.Code == evdev.ABS_MT_POSITION_X {
					hasAbsMT = true
				}
				if c.Code == evdev.ABS_X {
					hasAbsX = true
				}
			}
		case evdev.EV_REL:
			var relX, relY bool
			for _, c := range codes {
				if c.Code == evdev.REL_X {
					relX = true
				}
				if c.Code == evdev.REL_Y {
					relY = true
				}
			}
			hasRelXY = relX && relY
		case evdev.EV_KEY:
			for _, c := range codes {
				if c.Code >= evdev.KEY_Q && c.Code <= evdev.KEY_P {
					hasKeyRow = true
				}
			}
		case evdev.EV_SW:
			hasSW = true
		}
	}

	name := strings.ToLower(dev.Name)
	switch {
	case hasAbsMT || hasAbsX:
		return kindTouchpad
	case hasSW:
		return kindSwitch
	case hasRelXY && strings.Contains(name, "trackpoint"):
		return kindTrackpoint
	case hasRelXY && strings.Contains(name, "pointstick"):
		return kindTrackpoint
	case hasRelXY:
		return kindMouse
	case hasKeyRow:
		return kindKeyboard
	default:
		return kindUnknown
	}
}

// isInternalDevice heuristically distinguishes a laptop's built-in
// keyboard/touchpad/trackpoint from an external peripheral. golang-evdev
// surfaces a device's name and path but not the kernel's bus/vendor/
// product id tuple, so a udev-tag lookup is approximated here by name.
func isInternalDevice(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range []string{"bluetooth", "usb", "wireless"} {
		if strings.Contains(lower, ext) {
			return false
		}
	}
	return true
}

// openedDevice bundles the kernel file handle with the dispatch device it
// feeds, so Manager can grab/release and close on removal.
type openedDevice struct {
	id       int
	path     string
	kind     kind
	file     *evdev.InputDevice
	dev      *dispatch.Device
	touchpad *dispatch.TouchpadDispatch
	lidFB    *dispatch.FallbackDispatch // non-nil only for kindSwitch devices
}

// Manager owns the seat, the shared timer wheel, the cross-device
// arbiter, and one openedDevice per discovered kernel node. It is the
// sole component that touches device files; the library core only ever
// sees decoded tuples.
type Manager struct {
	mu      sync.Mutex
	seat    *seat.Seat
	timers  *timer.Wheel
	arbiter *dispatch.Arbiter
	sink    event.Sink
	log     event.Logger
	quirks  *quirks.DB

	devices []*openedDevice
	nextID  int
}

// NewManager returns an empty manager for one seat. The sink every
// dispatch emits into is wrapped so lid/tablet-mode toggles also reach
// the arbiter, which suspends or resumes the seat's touchpads.
func NewManager(seatName string, sink event.Sink, log event.Logger, db *quirks.DB) *Manager {
	m := &Manager{
		seat:   seat.New(seatName),
		timers: timer.New(),
		log:    log,
		quirks: db,
	}
	m.arbiter = dispatch.NewArbiter()
	m.sink = event.SinkFunc(func(e event.Event) {
		if e.Kind == event.KindSwitchToggle {
			m.arbiter.NotifySwitch(e.Switch, e.SwitchState == event.SwitchOn, e.Time)
		}
		sink.Emit(e)
	})
	return m
}

func nowUS() uint64 {
	return uint64(time.Now().UnixMicro())
}

// quirksFor resolves the quirk entry for a device, falling back to the
// zero Entry (every threshold 0, reliability "unknown") when no database
// was loaded. Matching is by name only: golang-evdev doesn't surface the
// bus/vendor/product id tuple a real quirks.DeviceInfo lookup would also
// use, so those fields stay wildcarded (zero).
func (m *Manager) quirksFor(dev *evdev.InputDevice) quirks.Entry {
	if m.quirks == nil {
		return quirks.Entry{}
	}
	return m.quirks.Lookup(quirks.DeviceInfo{Name: dev.Name})
}

func reliabilityFromQuirk(s string) lid.Reliability {
	switch s {
	case "reliable":
		return lid.ReliabilityReliable
	case "write_open":
		return lid.ReliabilityWriteOpen
	default:
		return lid.ReliabilityUnknown
	}
}

// AddDevice opens path (the injected file-interface's open_restricted
// equivalent), classifies it, and wires a fallback or touchpad dispatch
// per the matched DeviceConfig.
func (m *Manager) AddDevice(path string, dc DeviceConfig) error {
	f, err := evdev.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	k := classify(f)
	if dc.Kind != "" && dc.Kind != "auto" {
		k = kindFromString(dc.Kind)
	}
	if k == kindUnknown {
		_ = f.File.Close()
		return fmt.Errorf("%s: no recognized capabilities", path)
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.mu.Unlock()

	entry := m.quirksFor(f)
	opts := optionsFromDeviceConfig(dc)

	dev := dispatch.NewDevice(id, f.Name, m.seat, m.sink, m.log, m.timers)
	dev.LeftHanded = opts.LeftHanded
	dev.Tags = tagsFor(k, f.Name)

	od := &openedDevice{id: id, path: path, kind: k, file: f, dev: dev}

	switch k {
	case kindTouchpad:
		od.touchpad = m.newTouchpad(dev, f, dc, opts, entry)
		m.arbiter.RegisterTouchpad(od.touchpad)
	case kindSwitch:
		od.lidFB = m.newSwitchFallback(dev, entry)
	default:
		m.newPointerOrKeyboardFallback(dev, k, dc, opts)
	}

	internalKeyboard := k == kindKeyboard && dev.Tags[dispatch.TagInternalKeyboard]

	m.mu.Lock()
	for _, other := range m.devices {
		other.dev.Dispatch.DeviceAdded(dev)
		dev.Dispatch.DeviceAdded(other.dev)
		if internalKeyboard && other.lidFB != nil {
			other.lidFB.PairKeyboard(id)
		}
		if od.lidFB != nil && other.kind == kindKeyboard && other.dev.Tags[dispatch.TagInternalKeyboard] {
			od.lidFB.PairKeyboard(other.id)
		}
	}
	m.devices = append(m.devices, od)
	m.mu.Unlock()

	dev.Dispatch.PostAdded(nowUS())

	dev.Sink.Emit(event.Event{
		Kind:         event.KindDeviceAdded,
		Time:         nowUS(),
		DeviceID:     id,
		Seat:         m.seat.Name,
		Capabilities: dev.Capabilities,
	})

	if k == kindMouse && dev.Tags[dispatch.TagExternalMouse] {
		m.arbiter.NotifyExternalMouse(true)
	}

	if err := f.Grab(); err != nil {
		m.log.Warnf("grab %s (%s): %v", f.Name, path, err)
	}
	return nil
}

// RemoveDevice tears one device down: suspend releases any dangling
// touches and pressed keys, the fd is released and closed, and the seat's
// remaining devices are notified — including resuming a touchpad
// suspended by an external mouse that just went away.
func (m *Manager) RemoveDevice(path string) {
	m.mu.Lock()
	var od *openedDevice
	idx := -1
	for i, d := range m.devices {
		if d.path == path {
			od, idx = d, i
			break
		}
	}
	if od != nil {
		m.devices = append(m.devices[:idx], m.devices[idx+1:]...)
	}
	remaining := append([]*openedDevice(nil), m.devices...)
	m.mu.Unlock()
	if od == nil {
		return
	}

	now := nowUS()
	od.dev.Dispatch.Suspend(now)
	od.dev.Dispatch.Remove()
	od.dev.Dispatch.Destroy()
	if err := od.file.Release(); err != nil {
		m.log.Debugf("release %s: %v", od.path, err)
	}
	_ = od.file.File.Close()

	for _, other := range remaining {
		other.dev.Dispatch.DeviceRemoved(od.dev)
	}
	if od.kind == kindMouse && od.dev.Tags[dispatch.TagExternalMouse] {
		m.arbiter.NotifyExternalMouse(false)
	}
	m.sink.Emit(event.Event{Kind: event.KindDeviceRemoved, Time: now, DeviceID: od.id, Seat: m.seat.Name})
}

func kindFromString(s string) kind {
	switch s {
	case "touchpad":
		return kindTouchpad
	case "mouse":
		return kindMouse
	case "trackpoint":
		return kindTrackpoint
	case "keyboard":
		return kindKeyboard
	case "switch":
		return kindSwitch
	default:
		return kindUnknown
	}
}

func tagsFor(k kind, name string) map[string]bool {
	tags := make(map[string]bool)
	internal := isInternalDevice(name)
	switch k {
	case kindKeyboard:
		if internal {
			tags[dispatch.TagInternalKeyboard] = true
		}
	case kindTrackpoint:
		tags[dispatch.TagTrackpoint] = true
	case kindMouse:
		if !internal {
			tags[dispatch.TagExternalMouse] = true
		}
	case kindSwitch:
		tags[dispatch.TagLidSwitch] = true
	}
	return tags
}

// Typical Synaptics/Goodix clickpad axis ranges, used whenever a config
// doesn't override them. golang-evdev's capability map reports which
// axes exist but not their EVIOCGABS min/max/resolution, so a real
// device manager would read those off the device node directly (not
// this demo harness's concern).
const (
	defaultWidthUnits  = 3000
	defaultHeightUnits = 2000
	defaultResPerMM    = 40
)

func (m *Manager) newTouchpad(dev *dispatch.Device, f *evdev.InputDevice, dc DeviceConfig, opts devconfig.Options, entry quirks.Entry) *dispatch.TouchpadDispatch {
	dev.Capabilities = event.CapPointer | event.CapTouch

	width := orDefault(dc.WidthUnits, defaultWidthUnits)
	height := orDefault(dc.HeightUnits, defaultHeightUnits)
	resX := orDefault(dc.ResolutionXPerMM, defaultResPerMM)
	resY := orDefault(dc.ResolutionYPerMM, defaultResPerMM)

	detection := dispatch.DetectFakeFinger
	var pHi, pLo, sHi, sLo int32
	if entry.PressureRange != nil {
		detection = dispatch.DetectPressure
		pHi, pLo = entry.PressureRange.High, entry.PressureRange.Low
	} else if entry.TouchSizeRange != nil {
		detection = dispatch.DetectSize
		sHi, sLo = entry.TouchSizeRange.High, entry.TouchSizeRange.Low
	}

	dpi := dc.DPI
	if dpi == 0 {
		dpi = 1000
	}
	profile := accelProfileForTouchpad(opts, dpi)

	topts := dispatch.TouchpadOptions{
		NumSlots:               16,
		WidthUnits:             width,
		HeightUnits:            height,
		ResolutionXPerMM:       resX,
		ResolutionYPerMM:       resY,
		FuzzX:                  int32(orDefault(dc.FuzzX, 0)),
		FuzzY:                  int32(orDefault(dc.FuzzY, 0)),
		IsClickpad:             true,
		Detection:              detection,
		PressureHigh:           pHi,
		PressureLow:            pLo,
		SizeHigh:               sHi,
		SizeLow:                sLo,
		PalmPressureThreshold:  entry.PalmPressureThreshold,
		PalmSizeThreshold:      entry.PalmSizeThreshold,
		ThumbPressureThreshold: entry.ThumbPressureThreshold,
		ThumbEnabled:           true,
		AccelProfile:           profile,
		DPI:                    dpi,
		DWTEnabled:             opts.DWT,
		Calibration:            opts.CalibrationMatrix,
		SendEventsMode:         opts.SendEventsMode,
	}
	return dispatch.NewTouchpadDispatch(dev, topts)
}

func accelProfileForTouchpad(opts devconfig.Options, dpi int) accel.Profile {
	if opts.AccelProfile == devconfig.AccelFlat {
		p := accel.NewFlatProfile()
		p.SetSpeed(opts.AccelSpeed)
		return p
	}
	p := accel.NewTouchpadProfile(dpi)
	p.SetSpeed(opts.AccelSpeed)
	return p
}

func (m *Manager) newPointerOrKeyboardFallback(dev *dispatch.Device, k kind, dc DeviceConfig, opts devconfig.Options) {
	fo := dispatch.FallbackOptions{
		IsPointer:          k == kindMouse || k == kindTrackpoint,
		WheelClickAngleDeg: orDefault(dc.WheelClickAngleDeg, 15),
		Calibration:        opts.CalibrationMatrix,
	}
	if rot := opts.RotationAngleDeg; rot != 0 {
		fo.Rotation = rotationMatrixFor(rot)
	}
	if fo.IsPointer {
		dpi := dc.DPI
		if dpi == 0 {
			dpi = 1000
		}
		fo.DPI = dpi
		if k == kindTrackpoint {
			fo.AccelProfile = accel.NewTrackpointProfile()
		} else if dpi >= 1000 {
			fo.AccelProfile = accel.NewLinearProfile(dpi)
		} else {
			fo.AccelProfile = accel.NewLinearLowDPIProfile(dpi)
		}
		fo.AccelProfile.SetSpeed(opts.AccelSpeed)
	}
	dev.Capabilities = capabilityFor(k)
	dispatch.NewFallbackDispatch(dev, fo)
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func rotationMatrixFor(degrees int) [4]float64 {
	switch ((degrees % 360) + 360) % 360 {
	case 90:
		return [4]float64{0, -1, 1, 0}
	case 180:
		return [4]float64{-1, 0, 0, -1}
	case 270:
		return [4]float64{0, 1, -1, 0}
	default:
		return [4]float64{1, 0, 0, 1}
	}
}

func capabilityFor(k kind) event.Capability {
	switch k {
	case kindMouse, kindTrackpoint:
		return event.CapPointer
	case kindKeyboard:
		return event.CapKeyboard
	default:
		return 0
	}
}

// newSwitchFallback wires a lid/tablet-mode switch node onto a
// FallbackDispatch with TrackedSwitches set; the dispatch owns the
// lid.Dispatch internally (see NewFallbackDispatch), so the
// FallbackDispatch itself — not a second lid.Dispatch — is the handle
// AddDevice keeps for PairKeyboard wiring.
func (m *Manager) newSwitchFallback(dev *dispatch.Device, entry quirks.Entry) *dispatch.FallbackDispatch {
	reliability := reliabilityFromQuirk(entry.LidSwitchReliability)
	writeSwitch := func(value int32) {
		m.log.Infof("synthetic SW_LID=%d for device %d (write_open quirk), logged only, not written to the device", value, dev.ID)
	}
	dev.Capabilities = event.CapSwitch
	return dispatch.NewFallbackDispatch(dev, dispatch.FallbackOptions{
		TrackedSwitches: true,
		LidReliability:  reliability,
		WriteLidSwitch:  lid.WriteSwitch(writeSwitch),
	})
}

// Discover opens every /dev/input/event* node golang-evdev reports,
// matching each against the configured device list (by explicit path, by
// name substring, or falling through to auto-classification).
func (m *Manager) Discover(cfgs []DeviceConfig) error {
	devices, err := evdev.ListInputDevices()
	if err != nil {
		return fmt.Errorf("list input devices: %w", err)
	}

	matched := make(map[string]bool)
	for _, dc := range cfgs {
		if dc.Path == "" {
			continue
		}
		if err := m.AddDevice(dc.Path, dc); err != nil {
			m.log.Warnf("add configured device %s: %v", dc.Path, err)
		}
		matched[dc.Path] = true
	}

	for _, info := range devices {
		if matched[info.Fn] {
			continue
		}
		dc := matchByName(cfgs, info.Name)
		if err := m.AddDevice(info.Fn, dc); err != nil {
			m.log.Debugf("skip %s: %v", info.Fn, err)
		}
	}
	return nil
}

func matchByName(cfgs []DeviceConfig, name string) DeviceConfig {
	for _, dc := range cfgs {
		if dc.Path != "" {
			continue
		}
		if dc.NameMatch != "" && strings.Contains(strings.ToLower(name), strings.ToLower(dc.NameMatch)) {
			return dc
		}
	}
	return DeviceConfig{}
}

// rawEvent is a decoded evdev tuple tagged with the device it came from;
// the channel it flows through is the only hand-off between the
// per-device reader goroutines golang-evdev's blocking Read() requires
// and the single goroutine that actually drives dispatch state.
type rawEvent struct {
	deviceID int
	typ      uint16
	code     uint16
	value    int32
	timeUS   uint64
	gone     bool // the reader hit a permanent error; tear the device down
}

// Run starts one reader goroutine per opened device and processes events
// plus timer expiry on the calling goroutine until ctx is cancelled. All
// dispatch state mutation happens on this goroutine — the readers only
// decode and hand off, they never touch dispatch state themselves.
func (m *Manager) Run(ctx context.Context) error {
	raw := make(chan rawEvent, 256)
	var wg sync.WaitGroup

	m.mu.Lock()
	for _, od := range m.devices {
		wg.Add(1)
		go m.readLoop(ctx, &wg, od, raw)
	}
	m.mu.Unlock()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			m.shutdown()
			return ctx.Err()
		case ev := <-raw:
			m.dispatchOne(ev)
		case <-ticker.C:
			m.timers.Expire(nowUS())
		}
	}
}

func (m *Manager) readLoop(ctx context.Context, wg *sync.WaitGroup, od *openedDevice, out chan<- rawEvent) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		events, err := od.file.Read()
		if err != nil {
			if strings.Contains(err.Error(), "resource temporarily unavailable") {
				time.Sleep(2 * time.Millisecond)
				continue
			}
			m.log.Warnf("read %s: %v", od.path, err)
			select {
			case out <- rawEvent{deviceID: od.id, gone: true}:
			case <-ctx.Done():
			}
			return
		}
		for _, e := range events {
			select {
			case out <- rawEvent{deviceID: od.id, typ: e.Type, code: e.Code, value: e.Value, timeUS: nowUS()}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (m *Manager) dispatchOne(ev rawEvent) {
	m.mu.Lock()
	var od *openedDevice
	for _, d := range m.devices {
		if d.id == ev.deviceID {
			od = d
			break
		}
	}
	m.mu.Unlock()
	if od == nil {
		return
	}

	if ev.gone {
		m.RemoveDevice(od.path)
		return
	}

	switch od.kind {
	case kindTrackpoint:
		if ev.typ == evdev.EV_REL && (ev.code == evdev.REL_X || ev.code == evdev.REL_Y) {
			m.arbiter.NotifyTrackpointMotion(od.id, ev.timeUS)
		}
	case kindKeyboard:
		if ev.typ == evdev.EV_KEY && ev.value == 1 {
			if od.dev.HasTag(dispatch.TagInternalKeyboard) {
				m.arbiter.NotifyKeyboardKey(ev.code, ev.timeUS)
			}
			m.notifyPairedSwitches(ev.deviceID, ev.timeUS)
		}
	}

	od.dev.Dispatch.Process(ev.typ, ev.code, ev.value, ev.timeUS)
}

// notifyPairedSwitches forwards a key-down from an internal keyboard to
// every lid/tablet-mode switch on the seat, so a stuck-closed report can
// be cleared by typing. keyboardID identifies the device the key-down
// came from; only internal keyboards are paired (see AddDevice), so
// external keyboards never clear a lid switch this way.
func (m *Manager) notifyPairedSwitches(keyboardID int, timeUS uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var isInternal bool
	for _, d := range m.devices {
		if d.id == keyboardID && d.kind == kindKeyboard && d.dev.Tags[dispatch.TagInternalKeyboard] {
			isInternal = true
			break
		}
	}
	if !isInternal {
		return
	}
	for _, d := range m.devices {
		if d.lidFB != nil {
			d.lidFB.KeyboardActivity(timeUS)
		}
	}
}

func (m *Manager) shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := nowUS()
	for _, od := range m.devices {
		od.dev.Dispatch.Suspend(now)
		od.dev.Dispatch.Destroy()
		if err := od.file.Release(); err != nil {
			m.log.Debugf("release %s: %v", od.path, err)
		}
		_ = od.file.File.Close()
		od.dev.Sink.Emit(event.Event{Kind: event.KindDeviceRemoved, Time: now, DeviceID: od.id, Seat: m.seat.Name})
	}
}
