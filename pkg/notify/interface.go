package notify

import "context"

// Notification types emitted by the referral engine.
const (
	TypeMemberApproved  = "member_approved"
	TypeRankUpgraded    = "rank_upgraded"
	TypePayoutProcessed = "payout_processed"
)

type Message struct {
	Type      string            `json:"type"`
	Recipient string            `json:"recipient"` // member email
	Phone     string            `json:"phone,omitempty"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Provider delivers one message over one channel. Providers are invoked
// fire-and-forget; errors are logged by the caller, never propagated back
// into the engine.
type Provider interface {
	Publish(ctx context.Context, message *Message) error
	Name() string
}
