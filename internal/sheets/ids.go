package sheets

import (
	"strings"

	"github.com/google/uuid"
)

// NewRecordID returns a fresh opaque record id, e.g. "rec3f2a...".
func NewRecordID() string {
	return "rec" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
