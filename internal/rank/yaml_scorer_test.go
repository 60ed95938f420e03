package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leadgenius-engine/internal/config"
	"leadgenius-engine/internal/domain"
)

func TestScoreDefaults(t *testing.T) {
	s := YAMLScorer{Cfg: config.Default()}

	score, tags := s.Score(domain.Lead{
		MarketGaps: []string{"No online ordering", "Weak SEO", "No online ordering"},
		Sentiment:  domain.SentimentNegative,
	})
	assert.Equal(t, 20+25+30+15+10+8, score)
	assert.Equal(t, []string{"no_chatbot", "no_booking", "no_website", "negative_sentiment", "ordering", "seo"}, tags)

	score, tags = s.Score(domain.Lead{HasChatbot: true, HasOnlineBooking: true, Website: "https://x.example"})
	assert.Zero(t, score)
	assert.Empty(t, tags)
}

func TestRankIsStableBestFirst(t *testing.T) {
	s := YAMLScorer{Cfg: config.Default()}
	in := []domain.Lead{
		{ID: "done", HasChatbot: true, HasOnlineBooking: true, Website: "https://a.example"},
		{ID: "bare"},
		{ID: "tie1", HasChatbot: true, HasOnlineBooking: true},
		{ID: "tie2", HasChatbot: true, HasOnlineBooking: true},
	}
	leads, ranked := Rank(s, in)
	ids := make([]string, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
	}
	assert.Equal(t, []string{"bare", "tie1", "tie2", "done"}, ids)
	assert.Equal(t, "bare", ranked[0].ID)
	assert.Equal(t, 75, ranked[0].Score)
	assert.Equal(t, []string{}, ranked[3].Tags)
}
