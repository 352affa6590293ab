package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/talkcircle/sentinel/internal/provider"
)

type HTTPProvider struct {
	baseURL      string
	fetchTimeout time.Duration
	client       *http.Client
}

func NewHTTPProvider(baseURL string, fetchTimeout time.Duration) provider.TranscriptProvider {
	return &HTTPProvider{
		baseURL:      strings.TrimRight(baseURL, "/"),
		fetchTimeout: fetchTimeout,
		client:       &http.Client{},
	}
}

type transcriptResponse struct {
	Tokens []provider.Token `json:"tokens"`
}

func (p *HTTPProvider) FetchTranscript(ctx context.Context, ref string) ([]provider.Token, error) {
	if p.baseURL == "" {
		return nil, provider.ErrProviderUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	endpoint := p.baseURL + "/v1/transcripts/" + url.PathEscape(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrProviderUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: provider returned status %d", provider.ErrProviderUnavailable, resp.StatusCode)
	}
	var body transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: invalid transcript payload: %v", provider.ErrProviderUnavailable, err)
	}
	return body.Tokens, nil
}
