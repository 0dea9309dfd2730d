package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Digest computes a stable hex digest over the preset so that a Run's
// ConfigDigest changes if and only if the effective configuration does.
// YAML maps don't guarantee field order, so the hash is computed from the
// JSON-marshaled struct (struct field order is fixed by the Go type).
func Digest(preset Preset) (string, error) {
	data, err := json.Marshal(preset)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
