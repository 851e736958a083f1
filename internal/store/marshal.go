package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/rendersync/internal/ir"
)

// marshalPatch converts a patch to canonical JSON TEXT and its hash.
func marshalPatch(patch ir.IRObject) (text, hash string, err error) {
	if patch == nil {
		patch = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(patch)
	if err != nil {
		return "", "", fmt.Errorf("marshal patch: %w", err)
	}
	hash, err = ir.PatchHash(patch)
	if err != nil {
		return "", "", fmt.Errorf("hash patch: %w", err)
	}
	return string(data), hash, nil
}

// unmarshalPatch parses canonical JSON TEXT to IRObject.
// Uses ir.IRObject.UnmarshalJSON, which keeps integers exact.
func unmarshalPatch(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal patch: %w", err)
	}
	return obj, nil
}
