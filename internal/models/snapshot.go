package models

import "time"

// SnapshotVersion is bumped whenever the Snapshot layout changes.
const SnapshotVersion = 1

// Snapshot is a full copy of the store used by backup export and import.
// Encrypted config values stay ciphertext.
type Snapshot struct {
	Version   int              `json:"version"`
	CreatedAt time.Time        `json:"createdAt"`
	Config    []SnapshotConfig `json:"config"`
	Users     []User           `json:"users"`
	Friends   *Friends         `json:"friends,omitempty"`
}

// SnapshotConfig is the serialized form of a ConfigEntry.
type SnapshotConfig struct {
	Key     string `json:"key"`
	IsEnc   bool   `json:"isEnc"`
	IsArray bool   `json:"isArray"`
	Bytes   []byte `json:"bytes,omitempty"`
	Text    string `json:"text,omitempty"`
}

// ToSnapshot converts e for serialization.
func (e *ConfigEntry) ToSnapshot() SnapshotConfig {
	return SnapshotConfig{Key: e.Key, IsEnc: e.IsEnc, IsArray: e.IsArray, Bytes: e.Bytes, Text: e.Text}
}

// Entry converts c back into a ConfigEntry.
func (c SnapshotConfig) Entry() *ConfigEntry {
	return &ConfigEntry{Key: c.Key, IsEnc: c.IsEnc, IsArray: c.IsArray, Bytes: c.Bytes, Text: c.Text}
}
