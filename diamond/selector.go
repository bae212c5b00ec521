package diamond

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"guildhall-backend/shared/apperrors"
)

// Selector is the fixed-width identifier of one externally invocable
// operation: the first 4 bytes of the Keccak-256 hash of the
// operation's canonical signature ("name(argType,...)").
type Selector [4]byte

func (s Selector) String() string {
	return hex.EncodeToString(s[:])
}

// ComputeSelector derives the selector for a canonical signature.
func ComputeSelector(signature string) Selector {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	sum := h.Sum(nil)
	var selector Selector
	copy(selector[:], sum[:4])
	return selector
}

// ParseSelector decodes a hex-encoded selector.
func ParseSelector(s string) (Selector, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 4 {
		return Selector{}, apperrors.New(apperrors.KindRouting, "invalid selector", "selector", s)
	}
	var selector Selector
	copy(selector[:], raw)
	return selector, nil
}
