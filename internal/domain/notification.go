package domain

// Notification is an in-app message attached to a user, newest first.
type Notification struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

// Channel names a simulated delivery channel.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// UserPreferences holds per-channel opt-ins.
type UserPreferences struct {
	PushEnabled  bool `json:"pushEnabled"`
	EmailEnabled bool `json:"emailEnabled"`
	SMSEnabled   bool `json:"smsEnabled"`
}

// DefaultPreferences returns push and email on, sms off.
func DefaultPreferences() UserPreferences {
	return UserPreferences{PushEnabled: true, EmailEnabled: true, SMSEnabled: false}
}

// Enabled reports whether the given channel is on.
func (p UserPreferences) Enabled(ch Channel) bool {
	switch ch {
	case ChannelPush:
		return p.PushEnabled
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelSMS:
		return p.SMSEnabled
	default:
		return false
	}
}

// Toggle returns a copy with the given channel flipped. Unknown channels are ignored.
func (p UserPreferences) Toggle(ch Channel) UserPreferences {
	switch ch {
	case ChannelPush:
		p.PushEnabled = !p.PushEnabled
	case ChannelEmail:
		p.EmailEnabled = !p.EmailEnabled
	case ChannelSMS:
		p.SMSEnabled = !p.SMSEnabled
	}
	return p
}

// EnabledChannels lists the channels that are on, in push, email, sms order.
func (p UserPreferences) EnabledChannels() []Channel {
	var out []Channel
	for _, ch := range []Channel{ChannelPush, ChannelEmail, ChannelSMS} {
		if p.Enabled(ch) {
			out = append(out, ch)
		}
	}
	return out
}

// ParseChannel validates a channel name.
func ParseChannel(s string) (Channel, bool) {
	switch Channel(s) {
	case ChannelPush, ChannelEmail, ChannelSMS:
		return Channel(s), true
	}
	return "", false
}
