package amqp

import (
	"encoding/json"
	"time"
)

// TransactionsImportedMessage announces a stored import batch. It carries only
// the batch reference; the worker reads the transactions from the database.
type TransactionsImportedMessage struct {
	BatchID   string    `json:"batchId"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionsImportedMessage(batchID string, count int) *TransactionsImportedMessage {
	return &TransactionsImportedMessage{
		BatchID:   batchID,
		Count:     count,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionsImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionsImportedMessageFromJSON decodes a message body.
func TransactionsImportedMessageFromJSON(data []byte) (*TransactionsImportedMessage, error) {
	var msg TransactionsImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
