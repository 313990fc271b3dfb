package board

import (
	"fmt"
	"strings"
)

// Pin is a GPIO number on the target board.
type Pin int

type Capability uint8

const (
	Input Capability = 1 << iota
	Output
	Analog
)

func (c Capability) String() string {
	var parts []string
	if c&Input != 0 {
		parts = append(parts, "input")
	}
	if c&Output != 0 {
		parts = append(parts, "output")
	}
	if c&Analog != 0 {
		parts = append(parts, "analog")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

type PinInfo struct {
	Caps      Capability
	Strapping bool
	Note      string
}

// Board describes which GPIOs a target exposes and what each can do.
type Board struct {
	Name string
	pins map[Pin]PinInfo
}

func (b *Board) Lookup(pin Pin) (PinInfo, bool) {
	info, ok := b.pins[pin]
	return info, ok
}

// Check returns an error if pin does not exist on the board or lacks any of the
// requested capabilities.
func (b *Board) Check(pin Pin, need ...Capability) error {
	info, ok := b.pins[pin]
	if !ok {
		return fmt.Errorf("GPIO%d is not an addressable pin on %s", pin, b.Name)
	}
	if info.Caps == 0 {
		return fmt.Errorf("GPIO%d is reserved on %s (%s)", pin, b.Name, info.Note)
	}
	for _, c := range need {
		if info.Caps&c != c {
			return fmt.Errorf("GPIO%d on %s does not support %s (has %s)", pin, b.Name, c, info.Caps)
		}
	}
	return nil
}

func (b *Board) IsStrapping(pin Pin) bool {
	return b.pins[pin].Strapping
}

// ESP32 models a classic ESP32 DevKit. Only ADC1 channels count as analog
// since ADC2 is unavailable while the WiFi radio is running.
var ESP32 = newESP32()

func newESP32() *Board {
	b := &Board{Name: "ESP32", pins: make(map[Pin]PinInfo)}

	for p := Pin(0); p <= 39; p++ {
		switch {
		case p == 20 || p == 24 || (p >= 28 && p <= 31):
			continue
		case p >= 6 && p <= 11:
			b.pins[p] = PinInfo{Note: "connected to SPI flash"}
		case p >= 34:
			b.pins[p] = PinInfo{Caps: Input | Analog, Note: "input only"}
		case p >= 32:
			b.pins[p] = PinInfo{Caps: Input | Output | Analog}
		default:
			b.pins[p] = PinInfo{Caps: Input | Output}
		}
	}

	for _, p := range []Pin{0, 2, 5, 12, 15} {
		info := b.pins[p]
		info.Strapping = true
		b.pins[p] = info
	}

	return b
}
