// Package quirks implements an external quirk-database surface:
// per-device properties such as lid-switch reliability and palm/thumb
// pressure thresholds, matched by vid/pid/name/bustype. The database
// format is a minimal YAML document keyed by match sections, layered
// general-to-specific the way a udev hwdb file is.
package quirks

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Range is a hi:lo pair, e.g. PRESSURE_RANGE or TOUCH_SIZE_RANGE
//.
type Range struct {
	High int32 `yaml:"high"`
	Low  int32 `yaml:"low"`
}

// TPKBComboLayout is the TPKBCOMBO_LAYOUT quirk.
type TPKBComboLayout int

const (
	TPKBComboUnknown TPKBComboLayout = iota
	TPKBComboBelow
)

// Entry is one device's resolved quirk set.
type Entry struct {
	LidSwitchReliability string  `yaml:"lid_switch_reliability"`
	PalmPressureThreshold int32  `yaml:"palm_pressure_threshold"`
	PalmSizeThreshold     int32  `yaml:"palm_size_threshold"`
	PressureRange         *Range `yaml:"pressure_range"`
	TouchSizeRange        *Range `yaml:"touch_size_range"`
	TPKBComboLayout       string `yaml:"tpkbcombo_layout"`
	ThumbPressureThreshold int32 `yaml:"thumb_pressure_threshold"`
	ThumbSizeThreshold     int32 `yaml:"thumb_size_threshold"`
	IsApple                bool  `yaml:"is_apple"`
	IsWacom                bool  `yaml:"is_wacom"`
	IsSynapticsSerial      bool  `yaml:"is_synaptics_serial"`
}

// Match selects which devices an Entry applies to. Empty fields are
// wildcards. Name is matched as a case-insensitive substring.
type Match struct {
	Bus     uint16 `yaml:"bus"`
	Vendor  uint16 `yaml:"vendor"`
	Product uint16 `yaml:"product"`
	Name    string `yaml:"name"`
}

type section struct {
	Match Match `yaml:"match"`
	Entry Entry `yaml:"quirks"`
}

type document struct {
	Sections []section `yaml:"devices"`
}

// DB is an in-memory quirk database loaded from one YAML document.
type DB struct {
	sections []section
}

// Load parses a quirk database from data.
func Load(data []byte) (*DB, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse quirks db: %w", err)
	}
	return &DB{sections: doc.Sections}, nil
}

// LoadFile reads and parses a quirk database file.
func LoadFile(path string) (*DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quirks db %s: %w", path, err)
	}
	return Load(data)
}

// DeviceInfo is the subset of a device descriptor needed to
// match quirk sections.
type DeviceInfo struct {
	Bus, Vendor, Product uint16
	Name                 string
}

// Lookup returns the merged Entry for dev: later sections in the file
// override earlier ones field-by-field where they match, the way a
// real udev-hwdb-style quirks file layers general rules under specific
// ones.
func (db *DB) Lookup(dev DeviceInfo) Entry {
	var merged Entry
	for _, s := range db.sections {
		if !matches(s.Match, dev) {
			continue
		}
		mergeEntry(&merged, s.Entry)
	}
	return merged
}

func matches(m Match, dev DeviceInfo) bool {
	if m.Bus != 0 && m.Bus != dev.Bus {
		return false
	}
	if m.Vendor != 0 && m.Vendor != dev.Vendor {
		return false
	}
	if m.Product != 0 && m.Product != dev.Product {
		return false
	}
	if m.Name != "" && !strings.Contains(strings.ToLower(dev.Name), strings.ToLower(m.Name)) {
		return false
	}
	return true
}

func mergeEntry(dst *Entry, src Entry) {
	if src.LidSwitchReliability != "" {
		dst.LidSwitchReliability = src.LidSwitchReliability
	}
	if src.PalmPressureThreshold != 0 {
		dst.PalmPressureThreshold = src.PalmPressureThreshold
	}
	if src.PalmSizeThreshold != 0 {
		dst.PalmSizeThreshold = src.PalmSizeThreshold
	}
	if src.PressureRange != nil {
		dst.PressureRange = src.PressureRange
	}
	if src.TouchSizeRange != nil {
		dst.TouchSizeRange = src.TouchSizeRange
	}
	if src.TPKBComboLayout != "" {
		dst.TPKBComboLayout = src.TPKBComboLayout
	}
	if src.ThumbPressureThreshold != 0 {
		dst.ThumbPressureThreshold = src.ThumbPressureThreshold
	}
	if src.ThumbSizeThreshold != 0 {
		dst.ThumbSizeThreshold = src.ThumbSizeThreshold
	}
	dst.IsApple = dst.IsApple || src.IsApple
	dst.IsWacom = dst.IsWacom || src.IsWacom
	dst.IsSynapticsSerial = dst.IsSynapticsSerial || src.IsSynapticsSerial
}
