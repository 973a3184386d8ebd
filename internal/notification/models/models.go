package models

import (
	"encoding/json"
	"time"

	alertmodels "shiftguard/internal/alert/models"
	id "shiftguard/pkg/domain"
)

type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
)

// Channels lists every delivery channel in fan-out order.
var Channels = []Channel{ChannelPush, ChannelEmail}

func (c Channel) IsValid() bool {
	return c == ChannelPush || c == ChannelEmail
}

func (c Channel) String() string { return string(c) }

// Preferences is a per-user channel x category opt-in matrix.
type Preferences map[Channel]map[alertmodels.Category]bool

// DefaultPreferences turns push on and email off, except for geofence and
// corrections which are on for both channels.
func DefaultPreferences() Preferences {
	p := make(Preferences, len(Channels))
	for _, ch := range Channels {
		p[ch] = make(map[alertmodels.Category]bool, len(alertmodels.Categories))
		for _, cat := range alertmodels.Categories {
			p[ch][cat] = defaultEnabled(ch, cat)
		}
	}
	return p
}

func defaultEnabled(ch Channel, cat alertmodels.Category) bool {
	if ch == ChannelPush {
		return true
	}
	return cat == alertmodels.CategoryGeofence || cat == alertmodels.CategoryCorrections
}

// Merge returns a fully populated matrix: defaults overlaid with the known
// channel/category keys from p. Unknown keys are dropped.
func Merge(p Preferences) Preferences {
	out := DefaultPreferences()
	for ch, cats := range p {
		if !ch.IsValid() {
			continue
		}
		for cat, enabled := range cats {
			if !cat.IsValid() {
				continue
			}
			out[ch][cat] = enabled
		}
	}
	return out
}

// Enabled reports whether ch is switched on for cat.
func (p Preferences) Enabled(ch Channel, cat alertmodels.Category) bool {
	cats, ok := p[ch]
	if !ok {
		return defaultEnabled(ch, cat)
	}
	enabled, ok := cats[cat]
	if !ok {
		return defaultEnabled(ch, cat)
	}
	return enabled
}

// ParsePreferences decodes a stored JSON matrix. Malformed input yields the
// defaults so a corrupted row never blocks delivery.
func ParsePreferences(raw []byte) Preferences {
	if len(raw) == 0 {
		return DefaultPreferences()
	}
	var p Preferences
	if err := json.Unmarshal(raw, &p); err != nil {
		return DefaultPreferences()
	}
	return Merge(p)
}

// Delivery is one (recipient, channel, payload) triple handed to a transport.
type Delivery struct {
	AlertID     id.AlertID     `json:"alert_id"`
	RecipientID id.UserID      `json:"recipient_id"`
	Channel     Channel        `json:"channel"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Data        map[string]any `json:"data,omitempty"`
}

type ReceiptStatus string

const (
	StatusDelivered ReceiptStatus = "delivered"
	StatusFailed    ReceiptStatus = "failed"
)

// Receipt records the outcome of one delivery attempt.
type Receipt struct {
	Delivery    Delivery      `json:"delivery"`
	Status      ReceiptStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
	AttemptedAt time.Time     `json:"attempted_at"`
}

func (r Receipt) Delivered() bool { return r.Status == StatusDelivered }
