package chat_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Meet/internal/client/chat"
	"github.com/dkeye/Meet/internal/domain"
)

func TestLog_AppendAndLast(t *testing.T) {
	l := chat.NewLog()
	_, ok := l.Last()
	assert.False(t, ok)

	l.Append(domain.ChatMessage{Body: "first", Seq: 1})
	l.Append(domain.ChatMessage{Body: "second", Seq: 2})

	assert.Equal(t, 2, l.Len())
	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, "second", last.Body)
}

func TestLog_CapDropsOldest(t *testing.T) {
	l := chat.NewLog()
	for i := 1; i <= 600; i++ {
		l.Append(domain.ChatMessage{Body: fmt.Sprintf("msg-%d", i), Seq: uint64(i)})
	}

	msgs := l.Messages()
	assert.Len(t, msgs, 500)
	assert.Equal(t, uint64(101), msgs[0].Seq)
	assert.Equal(t, uint64(600), msgs[len(msgs)-1].Seq)
}
