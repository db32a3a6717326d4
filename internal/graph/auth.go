package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/osacfin/reclass-cc14/internal/httpx"
)

// Authenticator obtains Microsoft Graph access tokens via the OAuth 2.0
// client-credentials flow. In dry-run mode (unless the SharePoint/Teams
// test flag re-enables real calls) it hands out a fake token.
type Authenticator struct {
	http         *httpx.Client
	baseURL      string
	tenantID     string
	clientID     string
	clientSecret string
	simulate     bool
	log          zerolog.Logger
}

func NewAuthenticator(http *httpx.Client, tenantID, clientID, clientSecret string, simulate bool, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		http:         http,
		baseURL:      "https://login.microsoftonline.com",
		tenantID:     tenantID,
		clientID:     clientID,
		clientSecret: clientSecret,
		simulate:     simulate,
		log:          log,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Token returns a Graph access token.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	if a.simulate {
		a.log.Info().Msg("[DRY_RUN] Simulating Microsoft Graph authentication")
		return "dry-run-token", nil
	}

	if a.tenantID == "" || a.clientID == "" || a.clientSecret == "" {
		return "", fmt.Errorf("Token: Graph credentials not configured")
	}

	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", a.baseURL, a.tenantID)
	form := url.Values{
		"client_id":     {a.clientID},
		"client_secret": {a.clientSecret},
		"scope":         {"https://graph.microsoft.com/.default"},
		"grant_type":    {"client_credentials"},
	}

	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}
	body, _, err := a.http.Do(ctx, http.MethodPost, endpoint, headers, []byte(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("Token: requesting token: %w", err)
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("Token: decoding token response: %w", err)
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return "", fmt.Errorf("Token: empty access token in response")
	}
	return resp.AccessToken, nil
}
