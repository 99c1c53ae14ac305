package store

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// HashContent returns the content hash recorded for scanned files.
func HashContent(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
