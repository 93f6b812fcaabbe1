// Package gpio provides digital input reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// DefaultChip is the gpiochip used when none is configured.
const DefaultChip = "gpiochip0"

// Sample maps input name to logical level (true = active).
type Sample map[string]bool

// Line describes one input line.
type Line struct {
	Name string
	// Offset is the line offset on the chip (BCM number on a Raspberry Pi).
	Offset int
	// ActiveLow inverts the raw level: raw 1 reads as logical false.
	// Optocoupler modules pull the line low when their input is energised.
	ActiveLow bool
}

// Reader reads input states.
type Reader interface {
	// Read returns the logical level of every configured line.
	Read() (Sample, error)

	// Close releases GPIO resources.
	Close() error
}

// logical converts a raw line value to a logical level.
func logical(raw int, activeLow bool) bool {
	if activeLow {
		return raw == 0
	}
	return raw != 0
}
