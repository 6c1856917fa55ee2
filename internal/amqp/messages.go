package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smartexpense/internal/core"
)

// RecordChangedMessage announces that a user's records were written. It
// carries no record data; consumers re-read the store.
type RecordChangedMessage struct {
	EventID    string      `json:"event_id"`
	UserID     core.UserID `json:"user_id"`
	RecordType core.TxType `json:"record_type,omitempty"` // empty for bulk changes such as a seed
	Month      string      `json:"month,omitempty"`       // YYYY-MM of the changed records, if known
	Timestamp  time.Time   `json:"timestamp"`
}

// NewRecordChangedMessage creates a message with a fresh event id.
func NewRecordChangedMessage(user core.UserID, typ core.TxType, month string) *RecordChangedMessage {
	return &RecordChangedMessage{
		EventID:    uuid.NewString(),
		UserID:     user,
		RecordType: typ,
		Month:      month,
		Timestamp:  time.Now().UTC(),
	}
}

func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON decodes and validates a message body.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("record changed message: %w", core.ErrEmptyUser)
	}
	if _, err := uuid.Parse(msg.EventID); err != nil {
		return nil, fmt.Errorf("record changed message: invalid event id %q: %w", msg.EventID, err)
	}
	return &msg, nil
}
