package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// RoutingBookUpdated is the routing key and message type of book updates.
const RoutingBookUpdated = "book.updated"

// BookUpdatedMessage announces that the GnuCash book at Path was rewritten
// and should be read again.
type BookUpdatedMessage struct {
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBookUpdatedMessage(path string) *BookUpdatedMessage {
	return &BookUpdatedMessage{
		Path:      path,
		Timestamp: time.Now(),
	}
}

func (m *BookUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BookUpdatedMessageFromJSON decodes a message. A message without a path is
// rejected.
func BookUpdatedMessageFromJSON(data []byte) (*BookUpdatedMessage, error) {
	var msg BookUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Path == "" {
		return nil, errors.New("book updated message without path")
	}
	return &msg, nil
}
