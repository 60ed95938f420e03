package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"leadgenius-engine/internal/domain"
	"leadgenius-engine/internal/scout"
)

var _ scout.Generator = (*Client)(nil)

var businessListSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":      {Type: genai.TypeString},
			"address":   {Type: genai.TypeString},
			"rating":    {Type: genai.TypeNumber},
			"latitude":  {Type: genai.TypeNumber},
			"longitude": {Type: genai.TypeNumber},
		},
		Required: []string{"name", "address", "rating", "latitude", "longitude"},
	},
}

var auditSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"marketGaps":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"pitchAngle":       {Type: genai.TypeString},
		"website":          {Type: genai.TypeString},
		"hasChatbot":       {Type: genai.TypeBoolean},
		"hasOnlineBooking": {Type: genai.TypeBoolean},
		"sentiment":        {Type: genai.TypeString, Description: "positive, neutral, or negative"},
	},
}

var competitorSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"competitorUrl":     {Type: genai.TypeString},
		"issues":            {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"comparisonSummary": {Type: genai.TypeString},
		"advantageLead": {
			Type:        genai.TypeString,
			Description: "One specific advantage the lead has or could have over this competitor.",
		},
	},
	Required: []string{"competitorUrl", "issues", "comparisonSummary", "advantageLead"},
}

func discoveryPrompt(industry, location string, minRating, maxRating float64) string {
	return fmt.Sprintf("Find 5-8 %s businesses in %s with ratings between %.1f and %.1f. "+
		"Provide their names, coordinates (lat/long), addresses, and current ratings.",
		industry, location, minRating, maxRating)
}

func structurePrompt(raw string) string {
	return "Parse the following business information into a valid JSON array of objects.\n" +
		"Fields needed: name, address, rating, latitude, longitude.\n" +
		"Input: " + raw
}

func auditPrompt(b scout.Business) string {
	return fmt.Sprintf(`Research the digital presence of "%s" at "%s".
Check specifically for:
1. AI Chatbot presence.
2. Online booking availability.
3. Overall sentiment of recent public reviews.
4. Generic market gaps and a tactical pitch angle.
Output JSON.`, b.Name, b.Address)
}

func competitorPrompt(lead domain.Lead, competitorURL string) string {
	site := lead.Website
	if site == "" {
		site = "No website"
	}
	return fmt.Sprintf(`Compare the target business "%s" (%s) with the competitor website: %s.
Analyze digital marketing issues for the competitor (SEO, speed, mobile, etc.).
Provide a comparison report.`, lead.Name, site, competitorURL)
}

// Discover asks a maps-grounded model for candidate businesses.
func (c *Client) Discover(ctx context.Context, industry, location string, minRating, maxRating float64) (string, error) {
	resp, err := c.generate(ctx, c.models.Discovery,
		genai.Text(discoveryPrompt(industry, location, minRating, maxRating)),
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}},
		})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", domain.NewTransientError(errors.New("discovery returned no text"))
	}
	return text, nil
}

func (c *Client) Structure(ctx context.Context, raw string) ([]scout.Business, error) {
	resp, err := c.generate(ctx, c.models.Structure, genai.Text(structurePrompt(raw)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   businessListSchema,
	})
	if err != nil {
		return nil, err
	}
	return decodeBusinesses(resp.Text())
}

func (c *Client) Audit(ctx context.Context, b scout.Business) (scout.Audit, error) {
	resp, err := c.generate(ctx, c.models.Audit, genai.Text(auditPrompt(b)), &genai.GenerateContentConfig{
		Tools:            []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		ResponseMIMEType: "application/json",
		ResponseSchema:   auditSchema,
	})
	if err != nil {
		return scout.Audit{}, err
	}
	return decodeAudit(resp.Text())
}

func (c *Client) CompareCompetitor(ctx context.Context, lead domain.Lead, competitorURL string) (domain.CompetitorReport, error) {
	resp, err := c.generate(ctx, c.models.Audit, genai.Text(competitorPrompt(lead, competitorURL)), &genai.GenerateContentConfig{
		Tools:            []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		ResponseMIMEType: "application/json",
		ResponseSchema:   competitorSchema,
	})
	if err != nil {
		return domain.CompetitorReport{}, err
	}
	var rep domain.CompetitorReport
	if err := json.Unmarshal([]byte(stripFences(resp.Text())), &rep); err != nil {
		return domain.CompetitorReport{}, domain.NewTransientError(fmt.Errorf("decode competitor report: %w", err))
	}
	return rep, nil
}

func decodeBusinesses(text string) ([]scout.Business, error) {
	text = stripFences(text)
	if text == "" {
		return []scout.Business{}, nil
	}
	var out []scout.Business
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, domain.NewTransientError(fmt.Errorf("decode businesses: %w", err))
	}
	return out, nil
}

// decodeAudit treats an empty or unparseable body as "nothing known".
func decodeAudit(text string) (scout.Audit, error) {
	text = stripFences(text)
	if text == "" {
		return scout.Audit{}, nil
	}
	var a scout.Audit
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return scout.Audit{}, domain.NewTransientError(fmt.Errorf("decode audit: %w", err))
	}
	return a, nil
}

// stripFences removes a markdown code fence around JSON. Grounded responses
// sometimes ignore the response MIME type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
