// internal/pkg/ref/ref.go
package ref

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// New generates a unique, sortable business reference with the given
// prefix, e.g. New("SUB") -> "SUB-01J8ZK4H4N4R9W6Q2M3T8V5XDC".
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, ulid.Make().String())
}
