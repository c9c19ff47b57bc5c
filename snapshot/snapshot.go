// Package snapshot provides versioned serialization of sync-engine state
// snapshots. Snapshots travel as an explicit tagged union rather than an
// opaque encoded blob, so older payloads remain readable after schema
// changes.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

const (
	KindSession = "session"
)

// SchemaVersion is the current wire schema version written by Marshal.
const SchemaVersion = 1

// Snapshot is any state capture that can be serialized through a registered Codec.
type Snapshot interface {
	Kind() string
}

// Codec marshals and unmarshals snapshots of a single kind to a stable wire form.
type Codec interface {
	Kind() string
	Marshal(s Snapshot) (json.RawMessage, error)      // returns the Data part only
	Unmarshal(data json.RawMessage) (Snapshot, error) // parse Data into a Snapshot
}

var (
	registry   = map[string]Codec{}
	registryMu sync.RWMutex
)

func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Kind()] = c
}

func Lookup(kind string) (Codec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	cc, ok := registry[kind]
	return cc, ok
}

// Maximum allowed size for a wire snapshot payload.
const maxWireSnapshotSize = 256 * 1024 // 256 KB

// WireSnapshot is the typed union for persistence and transfer.
type WireSnapshot struct {
	Version int             `json:"version"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

func MarshalWire(s Snapshot) (*WireSnapshot, error) {
	codec, ok := Lookup(s.Kind())
	if !ok {
		return nil, fmt.Errorf("unknown snapshot kind: %s", s.Kind())
	}
	data, err := codec.Marshal(s)
	if err != nil {
		return nil, err
	}
	if len(data) > maxWireSnapshotSize {
		return nil, fmt.Errorf("snapshot payload exceeds %d bytes", maxWireSnapshotSize)
	}
	return &WireSnapshot{Version: SchemaVersion, Kind: s.Kind(), Data: data}, nil
}

func UnmarshalWire(w *WireSnapshot) (Snapshot, error) {
	if w == nil {
		return nil, errors.New("nil wire snapshot")
	}
	if w.Version <= 0 || w.Version > SchemaVersion {
		return nil, fmt.Errorf("unsupported snapshot schema version: %d", w.Version)
	}
	if len(w.Data) > maxWireSnapshotSize {
		return nil, fmt.Errorf("snapshot payload exceeds %d bytes", maxWireSnapshotSize)
	}
	codec, ok := Lookup(w.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown snapshot kind: %s", w.Kind)
	}
	return codec.Unmarshal(w.Data)
}

// Encode serializes a snapshot to its complete wire JSON.
func Encode(s Snapshot) ([]byte, error) {
	w, err := MarshalWire(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// Decode parses complete wire JSON back into a snapshot.
func Decode(raw []byte) (Snapshot, error) {
	if len(raw) > maxWireSnapshotSize+1024 {
		return nil, fmt.Errorf("wire snapshot exceeds size limit")
	}
	var w WireSnapshot
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("malformed wire snapshot: %w", err)
	}
	return UnmarshalWire(&w)
}
