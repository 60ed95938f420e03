package domain

import (
	"strings"
	"time"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment maps free-form model or user input onto the three known values.
// Anything unrecognized (including empty) is neutral.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Lead is a scouted business plus its enrichment and the user-curated fields.
type Lead struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Address          string    `json:"address"`
	Rating           float64   `json:"rating"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Industry         string    `json:"industry"`
	MarketGaps       []string  `json:"marketGaps"`
	PitchAngle       string    `json:"pitchAngle"`
	Website          string    `json:"website,omitempty"`
	HasChatbot       bool      `json:"hasChatbot"`
	HasOnlineBooking bool      `json:"hasOnlineBooking"`
	Sentiment        Sentiment `json:"sentiment"`
	IsSaved          bool      `json:"isSaved"`
	Notes            string    `json:"notes,omitempty"`
	Proposal         string    `json:"proposal,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// IntelligencePatch is a field-level partial update. Nil fields are left untouched.
type IntelligencePatch struct {
	Notes      *string `json:"notes,omitempty"`
	Proposal   *string `json:"proposal,omitempty"`
	PitchAngle *string `json:"pitchAngle,omitempty"`
}

func (p IntelligencePatch) Empty() bool {
	return p.Notes == nil && p.Proposal == nil && p.PitchAngle == nil
}
