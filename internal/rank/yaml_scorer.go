package rank

import (
	"sort"
	"strings"

	"leadgenius-engine/internal/config"
	"leadgenius-engine/internal/domain"
)

// YAMLScorer weighs missing capabilities and market gap keywords from the
// scoring section of the config.
type YAMLScorer struct {
	Cfg config.Config
}

func (s YAMLScorer) Score(lead domain.Lead) (int, []string) {
	sc := s.Cfg.Scoring
	score := 0
	var tags []string

	add := func(weight int, tag string) {
		if weight == 0 {
			return
		}
		score += weight
		tags = append(tags, tag)
	}
	if !lead.HasChatbot {
		add(sc.NoChatbot, "no_chatbot")
	}
	if !lead.HasOnlineBooking {
		add(sc.NoBooking, "no_booking")
	}
	if strings.TrimSpace(lead.Website) == "" {
		add(sc.NoWebsite, "no_website")
	}
	if lead.Sentiment == domain.SentimentNegative {
		add(sc.NegativeSentiment, "negative_sentiment")
	}

	text := strings.ToLower(strings.Join(lead.MarketGaps, " "))
	for _, r := range sc.GapRules {
		for _, needle := range r.Any {
			n := strings.ToLower(strings.TrimSpace(needle))
			if n != "" && strings.Contains(text, n) {
				add(r.Weight, r.Tag)
				break
			}
		}
	}

	return score, uniq(tags)
}

// Ranked is a lead with its opportunity score.
type Ranked struct {
	ID    string   `json:"id"`
	Score int      `json:"score"`
	Tags  []string `json:"tags"`
}

// Rank scores leads and sorts them best first. Ties keep the input order.
func Rank(s Scorer, in []domain.Lead) ([]domain.Lead, []Ranked) {
	type pair struct {
		lead domain.Lead
		r    Ranked
	}
	ps := make([]pair, len(in))
	for i, l := range in {
		score, tags := s.Score(l)
		if tags == nil {
			tags = []string{}
		}
		ps[i] = pair{l, Ranked{ID: l.ID, Score: score, Tags: tags}}
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].r.Score > ps[j].r.Score })

	leads := make([]domain.Lead, len(ps))
	ranked := make([]Ranked, len(ps))
	for i, p := range ps {
		leads[i], ranked[i] = p.lead, p.r
	}
	return leads, ranked
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, t := range in {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
