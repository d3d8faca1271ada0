package agent

import (
	"strings"

	"github.com/google/uuid"
)

func newCallID() string {
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
