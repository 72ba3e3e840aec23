package amqp

import (
	"encoding/json"
	"time"

	"github.com/theirongolddev/fincast/internal/model"
)

// AlertMessage is the event published for every emitted budget alert.
type AlertMessage struct {
	Alert     model.Alert `json:"alert"`
	Source    string      `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewAlertMessage wraps an alert for publishing.
func NewAlertMessage(a model.Alert) *AlertMessage {
	return &AlertMessage{
		Alert:     a,
		Source:    "fincast",
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AlertMessageFromJSON decodes a published alert message.
func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RoutingKey is base followed by the alert type, e.g. "budget.alert.exceeded_limit".
func RoutingKey(base string, t model.AlertType) string {
	if base == "" {
		return string(t)
	}
	return base + "." + string(t)
}
