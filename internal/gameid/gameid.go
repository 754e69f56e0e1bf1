// Package gameid generates the public identifiers for games: UUIDv7 encoded
// as 26 characters of Crockford base32. IDs created later sort later, which
// keeps game listings and log files in creation order.
package gameid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// New returns a fresh time-ordered game ID.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Only possible if the OS entropy source fails.
		panic(fmt.Sprintf("generate game id: %v", err))
	}
	return encode(id)
}

// encode packs the 128 UUID bits into 26 base32 characters, five bits at a
// time, top bits first. The leading character carries only three data bits so
// it never exceeds '7'.
func encode(id uuid.UUID) string {
	var out [26]byte
	for i := range out {
		bit := i * 5
		idx := bit / 8
		off := bit % 8

		var v byte
		if off <= 3 {
			v = (id[idx] >> (3 - off)) & 0x1f
		} else {
			v = (id[idx] << (off - 3)) & 0x1f
			if idx+1 < len(id) {
				v |= id[idx+1] >> (11 - off)
			}
		}
		out[i] = alphabet[v]
	}
	return string(out[:])
}

// Validate reports whether id is a well-formed game ID.
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("game ID must be exactly 26 characters, got %d", len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("game ID first character must be 0-7, got %c", id[0])
	}
	for i, c := range id {
		if !strings.ContainsRune(alphabet, c) {
			return fmt.Errorf("invalid character %c at position %d", c, i)
		}
	}
	return nil
}
