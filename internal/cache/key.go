package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key derives a deterministic cache key from a collaborator name, an
// operation, and its parameters. Parameters are canonicalized by JSON
// encoding (Go serializes map keys in sorted order), so two parameter maps
// with the same contents produce the same key regardless of insertion
// order.
func Key(collaborator, operation string, params map[string]any) string {
	payload, err := json.Marshal(params)
	if err != nil {
		// Non-JSON-encodable parameters are rare; fmt also sorts map keys,
		// so the fallback stays deterministic.
		payload = []byte(fmt.Sprintf("%v", params))
	}

	h := sha256.New()
	h.Write([]byte(collaborator))
	h.Write([]byte{0})
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
