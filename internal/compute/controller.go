package compute

import (
	"context"
	"errors"
	"sort"
)

// ErrStaleFingerprint is returned when metadata changed between read and write.
var ErrStaleFingerprint = errors.New("compute: metadata fingerprint is stale")

// Item is a single instance metadata entry.
type Item struct {
	Key   string
	Value string
}

// Metadata is an instance's metadata snapshot. Fingerprint must be sent
// back unchanged with the next write.
type Metadata struct {
	Fingerprint string
	Items       []Item
}

// Value returns the value stored under key.
func (m Metadata) Value(key string) (string, bool) {
	for _, it := range m.Items {
		if it.Key == key {
			return it.Value, true
		}
	}
	return "", false
}

// Controller drives the one worker instance the service owns.
type Controller interface {
	Metadata(ctx context.Context) (Metadata, error)
	// SetMetadata replaces the instance metadata. It returns once the
	// update has been applied.
	SetMetadata(ctx context.Context, fingerprint string, items []Item) error
	// Start returns once the start request is accepted, not when the
	// instance is running.
	Start(ctx context.Context) error
}

// Merge overlays updates on existing, keeping the position of keys
// already present and appending new keys in sorted order.
func Merge(existing []Item, updates map[string]string) []Item {
	out := make([]Item, 0, len(existing)+len(updates))
	applied := make(map[string]bool, len(updates))
	for _, it := range existing {
		if v, ok := updates[it.Key]; ok {
			it.Value = v
			applied[it.Key] = true
		}
		out = append(out, it)
	}

	var added []string
	for k := range updates {
		if !applied[k] {
			added = append(added, k)
		}
	}
	sort.Strings(added)
	for _, k := range added {
		out = append(out, Item{Key: k, Value: updates[k]})
	}
	return out
}
