package domain

// SearchParams drives one scouting run and the dashboard filters over its results.
type SearchParams struct {
	Industry  string  `json:"industry"`
	Location  string  `json:"location"`
	MinRating float64 `json:"minRating"`
	MaxRating float64 `json:"maxRating"`

	FilterChatbot   bool   `json:"filterChatbot,omitempty"`
	FilterBooking   bool   `json:"filterBooking,omitempty"`
	FilterSentiment string `json:"filterSentiment,omitempty"` // all | positive | neutral | negative
}

type CompetitorReport struct {
	CompetitorURL     string   `json:"competitorUrl"`
	Issues            []string `json:"issues"`
	ComparisonSummary string   `json:"comparisonSummary"`
	AdvantageLead     string   `json:"advantageLead"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
