package toolspec

import (
	"fmt"
	"strings"
)

// maxBindingLen is the longest tool name OpenAI-compatible APIs accept.
const maxBindingLen = 64

// BindingName sanitises a remote tool name into the ^[a-zA-Z0-9_-]{1,64}$
// form required by model APIs. "Get Diabetes Score" becomes
// "Get_Diabetes_Score".
func BindingName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if len(out) > maxBindingLen {
		out = out[:maxBindingLen]
	}
	if out == "" {
		out = "tool"
	}
	return out
}

// Bindings maps remote tool names to unique binding names and back.
type Bindings struct {
	toBinding map[string]string
	toRemote  map[string]string
}

func NewBindings() *Bindings {
	return &Bindings{
		toBinding: map[string]string{},
		toRemote:  map[string]string{},
	}
}

// Bind returns the binding name for remote, allocating one on first use.
// Collisions after sanitising get a numeric suffix.
func (b *Bindings) Bind(remote string) string {
	if name, ok := b.toBinding[remote]; ok {
		return name
	}
	base := BindingName(remote)
	name := base
	for i := 2; ; i++ {
		if _, taken := b.toRemote[name]; !taken {
			break
		}
		suffix := fmt.Sprintf("_%d", i)
		if len(base)+len(suffix) > maxBindingLen {
			name = base[:maxBindingLen-len(suffix)] + suffix
		} else {
			name = base + suffix
		}
	}
	b.toBinding[remote] = name
	b.toRemote[name] = remote
	return name
}

// Remote resolves a binding name back to the remote tool name.
func (b *Bindings) Remote(binding string) (string, bool) {
	r, ok := b.toRemote[binding]
	return r, ok
}

// Len returns the number of bound tools.
func (b *Bindings) Len() int { return len(b.toRemote) }
