package schema

// History is the ordered, append-only list of messages of one conversation.
//
// A History is never mutated after construction: Append returns a new value
// and leaves the receiver untouched, so a turn can build its updates on a
// local copy and the caller commits them by replacing its reference.
type History struct {
	msgs []Message
}

// NewHistory returns a History holding a copy of msgs.
func NewHistory(msgs ...Message) History {
	if len(msgs) == 0 {
		return History{}
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return History{msgs: out}
}

// Append returns a new History with msgs added at the end.
func (h History) Append(msgs ...Message) History {
	n := len(h.msgs)
	// The full slice expression caps the backing array so append always
	// reallocates; two Histories never share writable tail capacity.
	return History{msgs: append(h.msgs[:n:n], msgs...)}
}

// Len returns the number of messages.
func (h History) Len() int { return len(h.msgs) }

// At returns the i-th message.
func (h History) At(i int) Message { return h.msgs[i] }

// Last returns the final message, or false when the history is empty.
func (h History) Last() (Message, bool) {
	if len(h.msgs) == 0 {
		return Message{}, false
	}
	return h.msgs[len(h.msgs)-1], true
}

// Messages returns a copy of the messages.
func (h History) Messages() []Message {
	out := make([]Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// Since returns the messages appended after the first n.
func (h History) Since(n int) []Message {
	if n >= len(h.msgs) {
		return nil
	}
	out := make([]Message, len(h.msgs)-n)
	copy(out, h.msgs[n:])
	return out
}

// Window returns the last max messages. A window never starts on a tool
// result, since providers reject a tool message without its assistant call.
func (h History) Window(max int) History {
	if max <= 0 || len(h.msgs) <= max {
		return h
	}
	start := len(h.msgs) - max
	for start < len(h.msgs) && h.msgs[start].Role == RoleTool {
		start++
	}
	return History{msgs: h.msgs[start:len(h.msgs):len(h.msgs)]}
}

// Conversational returns the user and assistant text turns only, dropping
// tool traffic and assistant messages that carried no text.
func (h History) Conversational() History {
	var out []Message
	for _, m := range h.msgs {
		switch m.Role {
		case RoleUser:
			out = append(out, NewUserMessage(m.Content))
		case RoleAssistant:
			if m.Content != "" {
				out = append(out, NewAssistantMessage(m.Content, nil))
			}
		}
	}
	return History{msgs: out}
}

// Prepend returns a new History with msgs placed before the existing ones.
// Providers use it to put the system prompt in front of a turn.
func (h History) Prepend(msgs ...Message) History {
	out := make([]Message, 0, len(msgs)+len(h.msgs))
	out = append(out, msgs...)
	out = append(out, h.msgs...)
	return History{msgs: out}
}
