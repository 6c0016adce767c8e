// Package keys provides a SigningKeyProvider backed by an in-process key ring.
//
// The ring signs with its current key and still verifies tokens signed with a
// short list of recently retired keys, so a key can be rotated without
// invalidating every outstanding token at once.
package keys

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	tokengate "github.com/chimerakang/tokengate-go"
)

// MinSecretLength is the minimum HMAC secret size in bytes.
const MinSecretLength = 32

// MaxPrevious is how many retired keys stay valid for verification.
const MaxPrevious = 3

type keySet struct {
	current  tokengate.SigningKey
	previous []tokengate.SigningKey
}

// Ring implements tokengate.SigningKeyProvider.
type Ring struct {
	set atomic.Pointer[keySet]
}

// compile-time check
var _ tokengate.SigningKeyProvider = (*Ring)(nil)

// NewRing creates a ring signing with current and accepting previous keys.
func NewRing(current tokengate.SigningKey, previous ...tokengate.SigningKey) (*Ring, error) {
	if len(previous) > MaxPrevious {
		previous = previous[:MaxPrevious]
	}
	seen := make(map[string]bool, len(previous)+1)
	for _, k := range append([]tokengate.SigningKey{current}, previous...) {
		if err := validate(k); err != nil {
			return nil, err
		}
		if seen[k.ID] {
			return nil, fmt.Errorf("tokengate/keys: duplicate key id %q", k.ID)
		}
		seen[k.ID] = true
	}

	r := &Ring{}
	r.set.Store(&keySet{current: clone(current), previous: cloneAll(previous)})
	return r, nil
}

// NewStatic creates a ring holding a single key.
func NewStatic(id string, secret []byte) (*Ring, error) {
	return NewRing(tokengate.SigningKey{ID: id, Secret: secret})
}

// SigningKey returns the current key.
func (r *Ring) SigningKey(_ context.Context) (tokengate.SigningKey, error) {
	return r.set.Load().current, nil
}

// VerificationKeys returns the current key followed by retired keys.
func (r *Ring) VerificationKeys(_ context.Context) ([]tokengate.SigningKey, error) {
	s := r.set.Load()
	out := make([]tokengate.SigningKey, 0, len(s.previous)+1)
	out = append(out, s.current)
	return append(out, s.previous...), nil
}

// Rotate makes next the signing key and retires the old one. The oldest
// retired key is dropped once more than MaxPrevious are held.
func (r *Ring) Rotate(next tokengate.SigningKey) error {
	if err := validate(next); err != nil {
		return err
	}
	for {
		old := r.set.Load()
		if old.current.ID == next.ID {
			return fmt.Errorf("tokengate/keys: key %q is already current", next.ID)
		}

		previous := []tokengate.SigningKey{old.current}
		for _, k := range old.previous {
			if k.ID != next.ID {
				previous = append(previous, k)
			}
		}
		if len(previous) > MaxPrevious {
			previous = previous[:MaxPrevious]
		}

		if r.set.CompareAndSwap(old, &keySet{current: clone(next), previous: previous}) {
			return nil
		}
	}
}

// ParseKey parses an "id=secret" configuration entry.
func ParseKey(entry string) (tokengate.SigningKey, error) {
	id, secret, ok := strings.Cut(entry, "=")
	if !ok {
		return tokengate.SigningKey{}, fmt.Errorf("tokengate/keys: expected id=secret, got %q", redact(entry))
	}
	k := tokengate.SigningKey{ID: strings.TrimSpace(id), Secret: []byte(secret)}
	if err := validate(k); err != nil {
		return tokengate.SigningKey{}, err
	}
	return k, nil
}

// ParseKeys parses several "id=secret" entries, skipping blanks.
func ParseKeys(entries []string) ([]tokengate.SigningKey, error) {
	out := make([]tokengate.SigningKey, 0, len(entries))
	for _, s := range entries {
		if strings.TrimSpace(s) == "" {
			continue
		}
		k, err := ParseKey(s)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

func validate(k tokengate.SigningKey) error {
	if k.ID == "" {
		return fmt.Errorf("tokengate/keys: key id cannot be empty")
	}
	if len(k.Secret) < MinSecretLength {
		return fmt.Errorf("tokengate/keys: key %q must be at least %d bytes", k.ID, MinSecretLength)
	}
	return nil
}

func clone(k tokengate.SigningKey) tokengate.SigningKey {
	return tokengate.SigningKey{ID: k.ID, Secret: append([]byte(nil), k.Secret...)}
}

func cloneAll(ks []tokengate.SigningKey) []tokengate.SigningKey {
	out := make([]tokengate.SigningKey, len(ks))
	for i, k := range ks {
		out[i] = clone(k)
	}
	return out
}

func redact(entry string) string {
	if id, _, ok := strings.Cut(entry, "="); ok {
		return id + "=***"
	}
	if len(entry) > 4 {
		return entry[:4] + "***"
	}
	return "***"
}
