package amqp

import (
	"encoding/json"
	"time"
)

// SyncCompletedMessage announces that an SMS sync pass finished and
// inserted new transactions. Workers fetch the actual rows from the
// database; the message only carries the window that changed.
type SyncCompletedMessage struct {
	Inserted   int       `json:"inserted"`
	Checkpoint int64     `json:"checkpoint"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewSyncCompletedMessage creates a message for a completed sync pass.
func NewSyncCompletedMessage(inserted int, checkpoint int64) *SyncCompletedMessage {
	return &SyncCompletedMessage{
		Inserted:   inserted,
		Checkpoint: checkpoint,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SyncCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncCompletedMessageFromJSON creates a message from JSON bytes
func SyncCompletedMessageFromJSON(data []byte) (*SyncCompletedMessage, error) {
	var msg SyncCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
