package pubsubx

import (
	"encoding/json"

	"github.com/clinia/bulkx/errorx"
)

type NotificationType string

const (
	NotificationTypeBulkInsertStarted = NotificationType("BulkInsertStarted")
	NotificationTypeBulkInsertEnded   = NotificationType("BulkInsertEnded")
	NotificationTypeBulkInsertError   = NotificationType("BulkInsertError")
)

// Notification is a change notification emitted by the server about a bulk insert operation.
// OperationID carries the client-generated session id the operation was started with.
type Notification struct {
	OperationID string           `json:"OperationId"`
	Type        NotificationType `json:"Type"`
	Message     string           `json:"Message,omitempty"`
}

// IsError reports whether the notification signals a server-side bulk insert failure.
func (n *Notification) IsError() bool {
	return n != nil && n.Type == NotificationTypeBulkInsertError
}

func (n *Notification) Validate() error {
	if n.OperationID == "" {
		return errorx.InvalidArgumentErrorf("notification operation id is required")
	}
	if n.Type == "" {
		return errorx.InvalidArgumentErrorf("notification type is required")
	}
	return nil
}

func EncodeNotification(n *Notification) ([]byte, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

func DecodeNotification(payload []byte) (*Notification, error) {
	n := &Notification{}
	if err := json.Unmarshal(payload, n); err != nil {
		return nil, errorx.InvalidArgumentErrorf("failed to decode notification: %v", err).WithCause(err)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}
