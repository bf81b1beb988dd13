// Command seatinputd is the reference application that wires the
// library core (dispatch, seat, accel, ...) to real kernel devices. It
// discovers /dev/input/event* nodes with golang-evdev, feeds decoded
// events into per-device dispatch state machines, and re-emits the
// resulting semantic stream onto a virtual mouse/keyboard via
// github.com/bendahl/uinput. None of this logic is part of the
// importable core — swap it out for a compositor's own input backend
// without touching the library packages.
package main

func main() {
	Execute()
}
