package entity

import "time"

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

type Preferences struct {
	UserID      string    `json:"user_id"`
	Email       bool      `json:"email"`
	SMS         bool      `json:"sms"`
	Push        bool      `json:"push"`
	Compliance  bool      `json:"compliance"`
	Maintenance bool      `json:"maintenance"`
	Fuel        bool      `json:"fuel"`
	System      bool      `json:"system"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultPreferences applies to users who never saved any.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:      userID,
		Email:       true,
		SMS:         false,
		Push:        true,
		Compliance:  true,
		Maintenance: true,
		Fuel:        true,
		System:      true,
	}
}

// Allows is true only when both the channel and the category are enabled.
func (p Preferences) Allows(channel Channel, t Type) bool {
	return p.channelEnabled(channel) && p.categoryEnabled(t)
}

func (p Preferences) channelEnabled(channel Channel) bool {
	switch channel {
	case ChannelEmail:
		return p.Email
	case ChannelSMS:
		return p.SMS
	case ChannelPush:
		return p.Push
	}
	return false
}

func (p Preferences) categoryEnabled(t Type) bool {
	switch t {
	case TypeCompliance:
		return p.Compliance
	case TypeMaintenance:
		return p.Maintenance
	case TypeFuel:
		return p.Fuel
	case TypeSystem:
		return p.System
	}
	return false
}
