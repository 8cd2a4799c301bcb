// Package chat keeps the local transcript of room messages.
package chat

import "github.com/dkeye/Meet/internal/domain"

const defaultCap = 500

// Log is an append-only, capped transcript. Messages carry registry-stamped
// sequence numbers; the log stores them in arrival order, which the registry
// guarantees matches the sequence order.
type Log struct {
	cap      int
	messages []domain.ChatMessage
}

func NewLog() *Log {
	return &Log{cap: defaultCap}
}

func (l *Log) Append(msg domain.ChatMessage) {
	l.messages = append(l.messages, msg)
	if len(l.messages) > l.cap {
		l.messages = l.messages[len(l.messages)-l.cap:]
	}
}

func (l *Log) Len() int { return len(l.messages) }

func (l *Log) Messages() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *Log) Last() (domain.ChatMessage, bool) {
	if len(l.messages) == 0 {
		return domain.ChatMessage{}, false
	}
	return l.messages[len(l.messages)-1], true
}
