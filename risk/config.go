package risk

import (
	"errors"
	"time"
)

// Config holds indicator weights and action thresholds.
type Config struct {
	DisposableEmailWeight int
	EmailExistsWeight     int
	SimilarEmailWeight    int
	IPReuseWeight         int
	DeviceReuseWeight     int
	LoopbackIPWeight      int
	HighVolumeWeight      int
	SuspiciousIPWeight    int

	// CooldownWindow bounds the IP, device and volume lookups.
	CooldownWindow time.Duration
	// VolumeThreshold is the number of successful signups in the window
	// that must be exceeded before the volume indicator fires.
	VolumeThreshold int

	// ReuseCap bounds the IP and device reuse counts. Zero leaves them
	// unbounded.
	ReuseCap int

	BlockHardThreshold int
	BlockSoftThreshold int
	WarnHighThreshold  int
	WarnLowThreshold   int

	// ExtraDisposableDomains extends the built-in denylist.
	ExtraDisposableDomains []string
}

// DefaultConfig returns the production weights and thresholds.
func DefaultConfig() Config {
	return Config{
		DisposableEmailWeight: 75,
		EmailExistsWeight:     100,
		SimilarEmailWeight:    50,
		IPReuseWeight:         50,
		DeviceReuseWeight:     30,
		LoopbackIPWeight:      5,
		HighVolumeWeight:      20,
		SuspiciousIPWeight:    30,

		CooldownWindow:  30 * 24 * time.Hour,
		VolumeThreshold: 50,

		BlockHardThreshold: 150,
		BlockSoftThreshold: 100,
		WarnHighThreshold:  75,
		WarnLowThreshold:   50,
	}
}

// Validate checks that the thresholds are ordered and the window is set.
func (c Config) Validate() error {
	if c.CooldownWindow <= 0 {
		return errors.New("Risk CooldownWindow must be > 0")
	}
	if c.VolumeThreshold < 0 {
		return errors.New("Risk VolumeThreshold must be >= 0")
	}
	if c.ReuseCap < 0 {
		return errors.New("Risk ReuseCap must be >= 0")
	}
	if !(c.BlockHardThreshold > c.BlockSoftThreshold &&
		c.BlockSoftThreshold > c.WarnHighThreshold &&
		c.WarnHighThreshold > c.WarnLowThreshold &&
		c.WarnLowThreshold > 0) {
		return errors.New("Risk thresholds must be strictly descending from BlockHard to WarnLow and > 0")
	}
	return nil
}
