package main

import (
	"fmt"

	"github.com/bendahl/uinput"

	"github.com/sizeofvoid/libopeninput-sub000/event"
)

// uinputSink re-emits the semantic event stream onto a virtual mouse and
// keyboard through bendahl/uinput, covering the full event.Sink surface.
type uinputSink struct {
	mouse    uinput.Mouse
	keyboard uinput.Keyboard
	log      event.Logger
}

// newUinputSink creates one virtual mouse and one virtual keyboard backed
// by /dev/uinput. Touch and switch events have no uinput analog worth
// forwarding (there is no consumer of a synthetic SW_LID report), so the
// sink only logs those kinds.
func newUinputSink(log event.Logger) (*uinputSink, error) {
	mouse, err := uinput.CreateMouse("/dev/uinput", []byte("seatinputd-mouse"))
	if err != nil {
		return nil, fmt.Errorf("create virtual mouse: %w", err)
	}
	keyboard, err := uinput.CreateKeyboard("/dev/uinput", []byte("seatinputd-keyboard"))
	if err != nil {
		_ = mouse.Close()
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	return &uinputSink{mouse: mouse, keyboard: keyboard, log: log}, nil
}

func (s *uinputSink) Close() {
	_ = s.mouse.Close()
	_ = s.keyboard.Close()
}

func (s *uinputSink) Emit(e event.Event) {
	switch e.Kind {
	case event.KindPointerMotion:
		s.emitMotion(e.Accelerated)
	case event.KindPointerMotionAbsolute:
		// bendahl/uinput's Mouse is relative-only; a real compositor
		// consumes absolute touchpad coordinates itself rather than
		// routing them through a virtual mouse node.
	case event.KindPointerButton:
		s.emitButton(e.Button, e.ButtonState == event.KeyPressed)
	case event.KindPointerAxis:
		s.emitAxis(e)
	case event.KindKeyboardKey:
		s.emitKey(e.KeyCode, e.KeyState == event.KeyPressed)
	case event.KindTouchDown, event.KindTouchMotion, event.KindTouchUp, event.KindTouchCancel, event.KindTouchFrame:
		s.log.Debugf("touch event %s seat_slot=%d point=%+v (no uinput multitouch sink)", e.Kind, e.SeatSlot, e.Point)
	case event.KindSwitchToggle:
		s.log.Infof("switch %v -> %v", e.Switch, e.SwitchState)
	case event.KindDeviceAdded:
		s.log.Infof("device %d added, caps=%v", e.DeviceID, e.Capabilities)
	case event.KindDeviceRemoved:
		s.log.Infof("device %d removed", e.DeviceID)
	}
}

func (s *uinputSink) emitMotion(d event.FloatCoords) {
	if dx := int32(d.X); dx != 0 {
		if err := s.mouse.MoveRight(dx); err != nil {
			s.log.Warnf("uinput move x: %v", err)
		}
	}
	if dy := int32(d.Y); dy != 0 {
		if err := s.mouse.MoveDown(dy); err != nil {
			s.log.Warnf("uinput move y: %v", err)
		}
	}
}

func (s *uinputSink) emitButton(code uint16, press bool) {
	var err error
	switch code {
	case 0x111: // BTN_RIGHT
		if press {
			err = s.mouse.RightPress()
		} else {
			err = s.mouse.RightRelease()
		}
	case 0x112: // BTN_MIDDLE
		if press {
			err = s.mouse.MiddlePress()
		} else {
			err = s.mouse.MiddleRelease()
		}
	default: // BTN_LEFT and anything resolved to the primary button
		if press {
			err = s.mouse.LeftPress()
		} else {
			err = s.mouse.LeftRelease()
		}
	}
	if err != nil {
		s.log.Warnf("uinput button: %v", err)
	}
}

func (s *uinputSink) emitAxis(e event.Event) {
	if e.AxisBitmap&event.AxisVertical != 0 && e.Discrete.Y != 0 {
		if err := s.mouse.Wheel(false, int32(e.Discrete.Y)); err != nil {
			s.log.Warnf("uinput wheel: %v", err)
		}
	}
	if e.AxisBitmap&event.AxisHorizontal != 0 && e.Discrete.X != 0 {
		if err := s.mouse.Wheel(true, int32(e.Discrete.X)); err != nil {
			s.log.Warnf("uinput hwheel: %v", err)
		}
	}
}

func (s *uinputSink) emitKey(code uint16, press bool) {
	var err error
	if press {
		err = s.keyboard.KeyDown(int(code))
	} else {
		err = s.keyboard.KeyUp(int(code))
	}
	if err != nil {
		s.log.Warnf("uinput key %d: %v", code, err)
	}
}

var _ event.Sink = (*uinputSink)(nil)
