package mailer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mailsched/internal/models"
)

// Sender delivers a single message and reports the provider-assigned
// message id. Implementations must honor ctx cancellation so a stalled
// delivery can never block the scheduler sweep indefinitely.
type Sender interface {
	Send(ctx context.Context, p models.Payload) (messageID string, err error)
}

// NewMessageID returns a collision-resistant Message-ID value scoped to the
// sending host.
func NewMessageID(host string) string {
	return fmt.Sprintf("%s@%s", uuid.NewString(), host)
}

// BuildMessage renders the RFC 5322 bytes for one payload.
func BuildMessage(messageID string, p models.Payload, sentAt time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", p.User)
	fmt.Fprintf(&b, "To: %s\r\n", p.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", p.Subject)
	fmt.Fprintf(&b, "Message-ID: <%s>\r\n", messageID)
	fmt.Fprintf(&b, "Date: %s\r\n", sentAt.UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(p.Body)
	b.WriteString("\r\n")
	return b.Bytes()
}
