package remediation

import (
	"encoding/json"
	"fmt"
)

// MessageStructureJSON tells the channel that the body is a JSON object with
// one payload per delivery protocol under at least a "default" key.
const MessageStructureJSON = "json"

// Message is a notification ready to be published.
type Message struct {
	TopicARN  string
	Subject   string
	Body      string
	Structure string
	// DeduplicationKey is unique per invocation and instance.
	DeduplicationKey string
	// GroupID orders messages about the same instance on FIFO channels.
	GroupID string
}

// Notification is the payload delivered to subscribers.
type Notification struct {
	InstanceID      string    `json:"InstanceID"`
	Action          Action    `json:"Action"`
	Reason          string    `json:"Reason"`
	SnapshotDetails *Snapshot `json:"SnapshotDetails"`
}

// NewMessage builds the message announcing the event. The notification is
// serialized once, wrapped under "default" and serialized again.
func NewMessage(topicARN, subject, invocationID string, event Event) (Message, error) {
	body, err := json.Marshal(Notification{
		InstanceID:      event.InstanceID,
		Action:          event.Action,
		Reason:          event.Reason,
		SnapshotDetails: event.Snapshot,
	})
	if err != nil {
		return Message{}, fmt.Errorf("marshal notification: %w", err)
	}
	envelope, err := json.Marshal(map[string]string{"default": string(body)})
	if err != nil {
		return Message{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return Message{
		TopicARN:         topicARN,
		Subject:          subject,
		Body:             string(envelope),
		Structure:        MessageStructureJSON,
		DeduplicationKey: fmt.Sprintf("%s:%s", invocationID, event.InstanceID),
		GroupID:          event.InstanceID,
	}, nil
}
