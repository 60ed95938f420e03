package scout

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Evidence is what a business's own website says about itself. Only positive
// findings are meaningful; a missing widget may still be loaded some other way.
type Evidence struct {
	HasChatbot       bool
	HasOnlineBooking bool
}

// Script and iframe hosts of common chat widgets.
var chatbotMarkers = []string{
	"intercom", "drift.com", "tawk.to", "crisp.chat", "livechatinc", "zendesk",
	"zopim", "tidio", "hubspot.com/conversations", "js.usemessages.com",
	"olark", "freshchat", "chatbot", "manychat",
}

// Booking providers and the phrases sites use for their own booking forms.
var bookingMarkers = []string{
	"calendly", "opentable", "resy.com", "booksy", "vagaro", "mindbodyonline",
	"squareup.com/appointments", "square.site/book", "acuityscheduling",
	"setmore", "schedulicity", "fresha", "zocdoc", "yelp.com/reservations",
	"sevenrooms", "exploretock",
}

var bookingPhrases = []string{"book now", "book online", "book an appointment", "schedule online", "reserve a table", "make a reservation"}

const maxProbeBody = 2 << 20

type Prober struct {
	hc  *http.Client
	lim *HostLimiter
}

func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{
		hc:  &http.Client{Timeout: timeout},
		lim: NewHostLimiter(1, 2),
	}
}

// Probe fetches the landing page and looks for chat and booking widgets.
func (p *Prober) Probe(ctx context.Context, site string) (Evidence, error) {
	target, err := normalizeSite(site)
	if err != nil {
		return Evidence{}, err
	}
	if err := p.lim.WaitURL(ctx, target); err != nil {
		return Evidence{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Evidence{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "text/html")

	resp, err := p.hc.Do(req)
	if err != nil {
		return Evidence{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Evidence{}, fmt.Errorf("probe %s: status %d", target, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return Evidence{}, err
	}
	return inspect(doc), nil
}

func inspect(doc *goquery.Document) Evidence {
	var ev Evidence

	doc.Find("script[src], iframe[src], link[href], a[href]").Each(func(_ int, s *goquery.Selection) {
		ref, ok := s.Attr("src")
		if !ok {
			ref, _ = s.Attr("href")
		}
		ref = strings.ToLower(ref)
		if ref == "" {
			return
		}
		if !ev.HasChatbot && containsAny(ref, chatbotMarkers) {
			ev.HasChatbot = true
		}
		if !ev.HasOnlineBooking && containsAny(ref, bookingMarkers) {
			ev.HasOnlineBooking = true
		}
	})

	// Inline loaders, e.g. window.intercomSettings or Tawk_API.
	if !ev.HasChatbot {
		doc.Find("script:not([src])").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if containsAny(strings.ToLower(s.Text()), chatbotMarkers) || strings.Contains(s.Text(), "Tawk_API") {
				ev.HasChatbot = true
				return false
			}
			return true
		})
	}

	if !ev.HasOnlineBooking {
		doc.Find("a, button").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if containsAny(strings.ToLower(strings.TrimSpace(s.Text())), bookingPhrases) {
				ev.HasOnlineBooking = true
				return false
			}
			return true
		})
	}
	return ev
}

func normalizeSite(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty website")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in %q", raw)
	}
	u.Fragment = ""
	return u.String(), nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
