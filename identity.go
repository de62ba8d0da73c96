package taski

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Args is a normalized, string-keyed argument map passed to a task.
//
// Args are compared structurally, not by insertion order: Args{"x": 1, "y": 2}
// and Args{"y": 2, "x": 1} identify the same task. A key that is present with
// a nil value is NOT the same as an absent key — Args{} and Args{"value": nil}
// must hash differently (Testable Property 3).
type Args map[string]any

// Identity is the registry key: a task class paired with its normalized
// arguments. identity(T, A) = (T, A).
type Identity struct {
	Class string
	Args  Args
}

// String returns a human-readable rendering, used in error messages and logs.
func (id Identity) String() string {
	if len(id.Args) == 0 {
		return id.Class
	}
	return fmt.Sprintf("%s%s", id.Class, id.argsString())
}

func (id Identity) argsString() string {
	keys := sortedKeys(id.Args)
	out := "("
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%v", k, id.Args[k])
	}
	return out + ")"
}

// Hash returns the deterministic identity hash. Identity itself is not
// comparable (its Args is a map), so the registry is keyed on the pair
// (Class, Hash()) instead; Hash is also usable for logging, cache-key
// display, and tests that want a short, stable fingerprint.
//
// The encoding technique — sorted keys, length-prefixed fields, an explicit
// presence marker per field — is adapted from the teacher repository's
// internal/dag/taskdef_hash.go, generalized from hashing a fixed task
// definition (inputs/env/run) to hashing an arbitrary Args map.
func (id Identity) Hash() string {
	h := sha256.New()

	writeField := func(data []byte) {
		length := uint64(len(data))
		lengthBytes := []byte{
			byte(length >> 56), byte(length >> 48), byte(length >> 40), byte(length >> 32),
			byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length),
		}
		h.Write(lengthBytes)
		h.Write(data)
	}

	writeField([]byte(id.Class))

	keys := sortedKeys(id.Args)
	writeField([]byte{byte(len(keys))})
	for _, k := range keys {
		writeField([]byte(k))
		v := id.Args[k]
		if v == nil {
			// Presence marker: key exists, value is nil.
			writeField([]byte{0x00})
			continue
		}
		writeField([]byte{0x01})
		writeField([]byte(fmt.Sprintf("%#v", v)))
	}

	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys(m Args) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether two identities address the same task instance.
// Because Args values may not be comparable with ==, equality is defined via
// the same canonical encoding used by Hash.
func (id Identity) Equal(other Identity) bool {
	return id.Class == other.Class && id.Hash() == other.Hash()
}
