package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// RecordSyncMessage announces a locally stored record that must be copied to
// the hosted sheet. The worker loads the full record from the database.
type RecordSyncMessage struct {
	Table     string    `json:"table"`
	RecordID  string    `json:"record_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordSyncMessage(table, recordID string) *RecordSyncMessage {
	return &RecordSyncMessage{
		Table:     table,
		RecordID:  recordID,
		Timestamp: time.Now(),
	}
}

func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordSyncMessageFromJSON decodes a message and rejects ones missing the
// table or record id.
func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Table == "" || msg.RecordID == "" {
		return nil, errors.New("sync message missing table or record_id")
	}
	return &msg, nil
}
