package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"leadgenius-engine/internal/domain"
)

// classify sorts API failures into unauthorized (re-auth) and transient (retry).
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	code, msg := apiStatus(err)
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case code == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "api key"):
		// An invalid key comes back as 400 API_KEY_INVALID.
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case code == http.StatusNotFound && strings.Contains(strings.ToLower(msg), "requested entity was not found"):
		// Model access tied to a key that lost it.
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	default:
		return domain.NewTransientError(err)
	}
}

func apiStatus(err error) (int, string) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v.Code, v.Message
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return p.Code, p.Message
	}
	return 0, err.Error()
}
