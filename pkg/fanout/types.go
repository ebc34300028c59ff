// Package fanout contains the public domain models and collaborator
// contracts for the chat fan-out service.
package fanout

import "time"

// MaxBatchTokens is the protocol limit on tokens per multicast request.
const MaxBatchTokens = 500

// ChatUser identifies the author of a chat message.
type ChatUser struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// ChatMessage is the trigger payload published when a chat message is created.
// It is read-only to this service.
type ChatMessage struct {
	Text      string    `json:"text"`
	User      ChatUser  `json:"user"`
	CompanyID string    `json:"companyId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Valid reports whether the message is a usable notification trigger.
// Messages without text or an identifiable sender are skipped, not errors.
func (m ChatMessage) Valid() bool {
	return m.Text != "" && m.User.UID != ""
}

// DeviceTokenRecord is the registry's projection of one user's device token.
type DeviceTokenRecord struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// NotificationPayload is the notification content shared by every batch of
// one invocation.
type NotificationPayload struct {
	Title string
	Body  string
	Data  map[string]string
}

// DispatchBatch is one multicast unit of work: at most MaxBatchTokens tokens
// plus the shared payload. Seq is the batch's position in the partition.
type DispatchBatch struct {
	Seq     int
	Tokens  []string
	Payload NotificationPayload
}

// DeliveryResult is the outcome for a single token in a single batch.
type DeliveryResult struct {
	Token       string
	Success     bool
	ErrorReason string
}

// Outcome classifies how an invocation terminated.
type Outcome string

const (
	OutcomeSkipped      Outcome = "skipped"
	OutcomeNoRecipients Outcome = "no-recipients"
	OutcomeCompleted    Outcome = "completed"
)

// DeliveryReport aggregates the per-token results of one invocation.
type DeliveryReport struct {
	Outcome   Outcome
	Delivered int
	Failed    int
}
