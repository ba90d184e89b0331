package realtime

import (
	"encoding/json"

	"github.com/colabhq/campaignd/internal/chat"
)

// Inbound event names.
const (
	EventRegister         = "register"
	EventCancelProcessing = "cancel-processing"
	EventCheckQueue       = "checkQueue"
	EventRoom             = "room"
	EventSendMessage      = "sendMessage"
	EventMarkSeen         = "markMessagesAsSeen"
)

// Outbound event names.
const (
	EventNotification     = "notification"
	EventProgress         = "progress"
	EventStatusQueue      = "statusQueue"
	EventExistingMessages = "existingMessages"
	EventLatestMessage    = "latestMessage"
	EventMessagesSeen     = "messagesSeen"
	EventError            = "error"
)

// Envelope is the wire frame for every realtime event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SubmissionRef identifies a background job by its submission.
type SubmissionRef struct {
	SubmissionID string `json:"submissionId"`
}

// ProgressPayload reports transcode progress for a submission.
// Progress 0 signals a cancelled or reset job.
type ProgressPayload struct {
	SubmissionID string `json:"submissionId"`
	Progress     int    `json:"progress"`
}

// StatusQueuePayload answers a checkQueue poll.
type StatusQueuePayload struct {
	Status string `json:"status"`
}

// ExistingMessagesPayload replays thread history on room join.
type ExistingMessagesPayload struct {
	ThreadID    string         `json:"threadId"`
	OldMessages []chat.Message `json:"oldMessages"`
}

// MessagesSeenPayload broadcasts a read receipt to a thread.
type MessagesSeenPayload struct {
	ThreadID string `json:"threadId"`
	UserID   string `json:"userId"`
}

func marshalEnvelope(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
