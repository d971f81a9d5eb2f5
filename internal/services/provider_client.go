package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/models"
	"golang.org/x/oauth2"
)

const (
	facebookProfileFields = "id,email,first_name,last_name,link,name,picture"
	maxProviderBody       = 1 << 20
)

// Profile is a provider account normalized across providers.
type Profile struct {
	ProviderUserID string
	Email          string
	FirstName      string
	LastName       string
	DisplayName    string
	PhotoURL       string
	EmailVerified  bool
}

// IdentityProvider performs the code exchange and profile fetch for a provider.
type IdentityProvider interface {
	ExchangeCode(ctx context.Context, provider models.Provider, code, clientID, redirectURI string) (string, error)
	FetchProfile(ctx context.Context, provider models.Provider, accessToken string) (*Profile, error)
}

// OAuthClient talks to the Facebook Graph API and Google's OAuth endpoints.
// Google goes through x/oauth2; Facebook's token endpoint takes a GET with
// the secret in the query, which x/oauth2 cannot issue.
type OAuthClient struct {
	httpClient        *http.Client
	facebookSecret    string
	facebookGraphURL  string
	googleSecret      string
	googleTokenURL    string
	googleUserInfoURL string
}

func NewOAuthClient(cfg *config.Config) *OAuthClient {
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OAuthClient{
		httpClient:        &http.Client{Timeout: timeout},
		facebookSecret:    cfg.FacebookSecret,
		facebookGraphURL:  strings.TrimRight(cfg.FacebookGraphURL, "/"),
		googleSecret:      cfg.GoogleSecret,
		googleTokenURL:    cfg.GoogleTokenURL,
		googleUserInfoURL: cfg.GoogleUserInfoURL,
	}
}

// Configured reports whether a client secret is available for the provider.
func (c *OAuthClient) Configured(provider models.Provider) bool {
	switch provider {
	case models.ProviderFacebook:
		return c.facebookSecret != ""
	case models.ProviderGoogle:
		return c.googleSecret != ""
	}
	return false
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *OAuthClient) ExchangeCode(ctx context.Context, provider models.Provider, code, clientID, redirectURI string) (string, error) {
	if !c.Configured(provider) {
		return "", fmt.Errorf("%s client secret is not configured", provider)
	}

	switch provider {
	case models.ProviderFacebook:
		return c.exchangeFacebook(ctx, code, clientID, redirectURI)
	case models.ProviderGoogle:
		return c.exchangeGoogle(ctx, code, clientID, redirectURI)
	}
	return "", fmt.Errorf("unsupported provider %q", provider)
}

func (c *OAuthClient) exchangeFacebook(ctx context.Context, code, clientID, redirectURI string) (string, error) {
	const op = "token exchange"
	params := url.Values{
		"code":          {code},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"client_secret": {c.facebookSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.facebookGraphURL+"/oauth/access_token?"+params.Encode(), nil)
	if err != nil {
		return "", &ProviderError{Provider: models.ProviderFacebook, Op: op, Err: err}
	}

	var tok accessTokenResponse
	if err := doJSON(c.httpClient, req, models.ProviderFacebook, op, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", &ProviderError{Provider: models.ProviderFacebook, Op: op, Err: errors.New("response has no access_token")}
	}
	return tok.AccessToken, nil
}

func (c *OAuthClient) exchangeGoogle(ctx context.Context, code, clientID, redirectURI string) (string, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: c.googleSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.googleTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	tok, err := conf.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return "", retrieveError(models.ProviderGoogle, "token exchange", err)
	}
	return tok.AccessToken, nil
}

// oauthContext makes x/oauth2 use the timeout-bound client.
func (c *OAuthClient) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// retrieveError turns an x/oauth2 failure into a ProviderError, keeping the
// upstream status and OAuth error fields.
func retrieveError(provider models.Provider, op string, err error) error {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return &ProviderError{Provider: provider, Op: op, Err: err}
	}

	perr := &ProviderError{Provider: provider, Op: op}
	if rerr.Response != nil {
		perr.StatusCode = rerr.Response.StatusCode
	}
	switch {
	case rerr.ErrorDescription != "":
		perr.Err = errors.New(rerr.ErrorDescription)
	case rerr.ErrorCode != "":
		perr.Err = errors.New(rerr.ErrorCode)
	default:
		perr.Err = errors.New(upstreamMessage(rerr.Body))
	}
	return perr
}

type facebookProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Link      string `json:"link"`
	Name      string `json:"name"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

type googleProfile struct {
	Sub           string   `json:"sub"`
	Name          string   `json:"name"`
	GivenName     string   `json:"given_name"`
	FamilyName    string   `json:"family_name"`
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	Picture       string   `json:"picture"`
}

func (c *OAuthClient) FetchProfile(ctx context.Context, provider models.Provider, accessToken string) (*Profile, error) {
	switch provider {
	case models.ProviderFacebook:
		params := url.Values{
			"access_token": {accessToken},
			"fields":       {facebookProfileFields},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.facebookGraphURL+"/me?"+params.Encode(), nil)
		if err != nil {
			return nil, &ProviderError{Provider: provider, Op: "profile fetch", Err: err}
		}

		var fb facebookProfile
		if err := doJSON(c.httpClient, req, provider, "profile fetch", &fb); err != nil {
			return nil, err
		}
		// The Graph API only returns confirmed email addresses.
		return normalizeProfile(provider, &Profile{
			ProviderUserID: fb.ID,
			Email:          fb.Email,
			FirstName:      fb.FirstName,
			LastName:       fb.LastName,
			DisplayName:    fb.Name,
			PhotoURL:       fb.Picture.Data.URL,
			EmailVerified:  fb.Email != "",
		})

	case models.ProviderGoogle:
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.googleUserInfoURL, nil)
		if err != nil {
			return nil, &ProviderError{Provider: provider, Op: "profile fetch", Err: err}
		}

		// The oauth2 transport sets the bearer header from the token source.
		client := oauth2.NewClient(c.oauthContext(ctx), oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: accessToken,
			TokenType:   "Bearer",
		}))
		client.Timeout = c.httpClient.Timeout

		var g googleProfile
		if err := doJSON(client, req, provider, "profile fetch", &g); err != nil {
			return nil, err
		}
		return normalizeProfile(provider, &Profile{
			ProviderUserID: g.Sub,
			Email:          g.Email,
			FirstName:      g.GivenName,
			LastName:       g.FamilyName,
			DisplayName:    g.Name,
			PhotoURL:       g.Picture,
			EmailVerified:  bool(g.EmailVerified),
		})
	}
	return nil, fmt.Errorf("unsupported provider %q", provider)
}

func normalizeProfile(provider models.Provider, p *Profile) (*Profile, error) {
	if p.ProviderUserID == "" {
		return nil, &ProviderError{Provider: provider, Op: "profile fetch", Err: errors.New("profile has no subject id")}
	}
	p.Email = models.NormalizeEmail(p.Email)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if p.DisplayName == "" {
		p.DisplayName = strings.TrimSpace(p.FirstName + " " + p.LastName)
	}
	return p, nil
}

func doJSON(client *http.Client, req *http.Request, provider models.Provider, op string, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &ProviderError{Provider: provider, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderBody))
	if err != nil {
		return &ProviderError{Provider: provider, Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderError{Provider: provider, Op: op, StatusCode: resp.StatusCode, Err: errors.New(upstreamMessage(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{Provider: provider, Op: op, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}

// upstreamMessage pulls a readable message out of a provider error body.
func upstreamMessage(body []byte) string {
	var envelope struct {
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 {
		if envelope.ErrorDescription != "" {
			return envelope.ErrorDescription
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if json.Unmarshal(envelope.Error, &plain) == nil && plain != "" {
			return plain
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "empty response"
	}
	return msg
}

// flexBool accepts both true and "true"; Google has sent either over time.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true", "1":
		*b = true
	case "false", "0", "", "null":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}
