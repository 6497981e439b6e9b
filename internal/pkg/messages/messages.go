package messages

import (
	"strings"

	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "SOUL/"
	// Work queue name
	Work = st + "Work"
	// StatusChange queue name
	StatusChange = st + "StatusChange"
	// Diary job processes an uploaded audio into a diary
	Diary = Work + ":diary"
	// Fail job marks the request as failed
	Fail = Work + ":fail"
)

// DiaryMessage main message passing through the async diary flow
type DiaryMessage struct {
	amessages.QueueMessage
	UserID    string `json:"userID,omitempty"`
	RequestID string `json:"requestID,omitempty"`
}

// NewMessageFrom creates a copy of a message
func NewMessageFrom(m *DiaryMessage) *DiaryMessage {
	return &DiaryMessage{QueueMessage: m.QueueMessage, UserID: m.UserID, RequestID: m.RequestID}
}

// QueueOf returns the queue of a job type.
// Job types are named <queue>:<type>
func QueueOf(name string) string {
	q, _, _ := strings.Cut(name, ":")
	return q
}
