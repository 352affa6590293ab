package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/talkcircle/sentinel/internal/identity"
)

const resolveTimeout = 5 * time.Second

type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

func NewHTTPResolver(baseURL string) identity.Resolver {
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: resolveTimeout},
	}
}

type resolveResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

func (r *HTTPResolver) Resolve(ctx context.Context, token string) (*identity.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, identity.ErrUnauthenticated
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v1/resolve", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity lookup failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
		return nil, identity.ErrUnauthenticated
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}
	var body resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("identity response is invalid: %w", err)
	}
	if body.UserID == "" {
		return nil, identity.ErrUnauthenticated
	}
	if body.DisplayName == "" {
		body.DisplayName = body.UserID
	}
	return &identity.Identity{UserID: body.UserID, DisplayName: body.DisplayName}, nil
}
