package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMissedMessageEscapesContent(t *testing.T) {
	out := RenderMissedMessage("https://app.example.com", MissedMessage{
		RecipientName: "Bob",
		SenderName:    "<Alice>",
		SenderID:      "alice",
		Preview:       `<script>alert("x")</script>`,
		Count:         3,
	})

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "&lt;Alice&gt; sent you a message")
	assert.Contains(t, out, "https://app.example.com/messages/alice")
	assert.Contains(t, out, "and 2 more")
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "New message from Alice", Subject(MissedMessage{SenderName: "Alice", Count: 1}))
	assert.Equal(t, "4 new messages from Alice", Subject(MissedMessage{SenderName: "Alice", Count: 4}))
}

func TestNoopSender(t *testing.T) {
	var s EmailSender = NoopSender{}
	assert.NoError(t, s.SendMissedMessage(context.Background(), "bob@example.com", MissedMessage{SenderID: "alice"}))
}
