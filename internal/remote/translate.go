package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pagebuilder/internal/domain"
)

// Translator asks the page API to translate copy into a new locale:
//
//	POST /translate {"locale": "es", "texts": [...]} → {"translations": {...}}
type Translator struct {
	client *Client
}

// NewTranslator uses the same base URL and credentials as c.
func NewTranslator(c *Client) *Translator {
	return &Translator{client: c}
}

// NewTranslatorAt builds a translator for a standalone translation
// endpoint.
func NewTranslatorAt(baseURL string, timeout time.Duration, opts ...Option) *Translator {
	return &Translator{client: New(baseURL, timeout, opts...)}
}

type translateRequest struct {
	Locale string   `json:"locale"`
	Texts  []string `json:"texts"`
}

type translateResponse struct {
	Translations map[string]string `json:"translations"`
}

// Translate returns a map from each source text to its translation.
// Texts the service skipped are absent from the map.
func (t *Translator) Translate(ctx context.Context, locale string, texts []string) (map[string]string, error) {
	body, err := json.Marshal(translateRequest{Locale: locale, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("encode translate request: %w", err)
	}
	resp, err := t.client.do(ctx, "translate", http.MethodPost, "/translate", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Wrap(domain.KindNetworkTransient, "translate", err)
	}
	var out translateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode translations: %w", err)
	}
	return out.Translations, nil
}
