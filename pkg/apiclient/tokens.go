package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
)

const refreshPath = "/token/refresh/"

// TokenSource supplies bearer tokens and renews them after a 401.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// StaticTokens always returns the same access token and cannot refresh.
type StaticTokens struct {
	Access string
}

func (s StaticTokens) Token(context.Context) (string, error) {
	return s.Access, nil
}

func (s StaticTokens) Refresh(context.Context) (string, error) {
	return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "access token expired and no refresh token is configured")
}

// RefreshingTokens exchanges a refresh token for a new access token at
// POST /token/refresh/. A rotated refresh token in the response replaces the old one.
type RefreshingTokens struct {
	mu         sync.Mutex
	access     string
	refresh    string
	endpoint   string
	httpClient *http.Client
}

func NewRefreshingTokens(baseURL, access, refresh string, httpClient *http.Client) *RefreshingTokens {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &RefreshingTokens{
		access:     access,
		refresh:    refresh,
		endpoint:   strings.TrimRight(baseURL, "/") + refreshPath,
		httpClient: httpClient,
	}
}

func (r *RefreshingTokens) Token(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.access, nil
}

func (r *RefreshingTokens) Refresh(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := json.Marshal(map[string]string{"refresh": r.refresh})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh token request failed")
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return "", errorFromResponse(resp)
	}

	var out struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode refresh response")
	}
	if out.Access == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh response carried no access token")
	}
	r.access = out.Access
	if out.Refresh != "" {
		r.refresh = out.Refresh
	}
	return r.access, nil
}
