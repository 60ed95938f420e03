package leads

import (
	"strings"

	"leadgenius-engine/internal/domain"
)

// Filter is the dashboard's view over GetAll. Zero value matches everything.
type Filter struct {
	SavedOnly bool
	MinRating *float64
	MaxRating *float64
	Chatbot   bool
	Booking   bool
	Sentiment string // "", "all" or a domain.Sentiment
}

// FilterFromSearch mirrors the sidebar controls of a search.
func FilterFromSearch(p domain.SearchParams) Filter {
	f := Filter{
		Chatbot:   p.FilterChatbot,
		Booking:   p.FilterBooking,
		Sentiment: p.FilterSentiment,
	}
	if p.MinRating > 0 {
		v := p.MinRating
		f.MinRating = &v
	}
	if p.MaxRating > 0 {
		v := p.MaxRating
		f.MaxRating = &v
	}
	return f
}

func (f Filter) Match(l domain.Lead) bool {
	if f.SavedOnly && !l.IsSaved {
		return false
	}
	if f.MinRating != nil && l.Rating < *f.MinRating {
		return false
	}
	if f.MaxRating != nil && l.Rating > *f.MaxRating {
		return false
	}
	if f.Chatbot && !l.HasChatbot {
		return false
	}
	if f.Booking && !l.HasOnlineBooking {
		return false
	}
	s := strings.ToLower(strings.TrimSpace(f.Sentiment))
	if s != "" && s != "all" && domain.ParseSentiment(s) != l.Sentiment {
		return false
	}
	return true
}

// Apply keeps the input order.
func (f Filter) Apply(in []domain.Lead) []domain.Lead {
	out := make([]domain.Lead, 0, len(in))
	for _, l := range in {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}
