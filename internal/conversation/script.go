package conversation

import "time"

// Message is one line of a script.
type Message struct {
	Role    Role
	Content string
	// ReferenceDocs are citations, kept only for retrieval messages.
	ReferenceDocs []string
	// Delay is measured from the moment the previous message became visible.
	Delay time.Duration
}

// Script is an ordered, immutable conversation.
type Script struct {
	Name     string
	Messages []Message
	Source   string // file path or "builtin"
}

// Len returns the number of messages.
func (s Script) Len() int {
	return len(s.Messages)
}

// Duration is the time from script start until its last message is visible.
func (s Script) Duration() time.Duration {
	var total time.Duration
	for _, msg := range s.Messages {
		total += msg.Delay
	}
	return total
}

// Library is the ordered list of scripts a player cycles through.
type Library []Script

// TotalMessages counts messages across all scripts.
func (l Library) TotalMessages() int {
	n := 0
	for _, s := range l {
		n += s.Len()
	}
	return n
}

func cloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i, msg := range in {
		out[i] = msg
		if len(msg.ReferenceDocs) > 0 {
			out[i].ReferenceDocs = append([]string(nil), msg.ReferenceDocs...)
		}
	}
	return out
}
