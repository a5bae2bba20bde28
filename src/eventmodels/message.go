package eventmodels

import "time"

// Message is the unit of NotificationHub delivery.
type Message struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	MessageTypePositionClosed = "position_closed"
	MessageTypePositionOpened = "position_opened"
	MessageTypeAnalysisResult = "analysis_result"
)

func NewMessage(msgType string, payload interface{}) Message {
	return Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}
