package bus

// Platform names used in InboundEvent.Platform and for sender lookup.
const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"
)

// InboundEvent is a platform message that survived normalization and is ready
// for relay. Body already carries the origin label and attachment lines.
type InboundEvent struct {
	Platform  string `json:"platform"`
	ChannelID int64  `json:"channel_id"` // Discord channel id or Telegram chat id
	MessageID int64  `json:"message_id"`
	ParentID  int64  `json:"parent_id,omitempty"` // replied-to message id, 0 if none
	Body      string `json:"body"`
}
