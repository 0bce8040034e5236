package tmdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the TMDB v3 API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"
	// DefaultTimeout bounds a single request when no http.Client is supplied.
	DefaultTimeout = 30 * time.Second

	maxBodyBytes = 1 << 20
)

const (
	EndpointRequestToken  = "/authentication/token/new"
	EndpointValidateLogin = "/authentication/token/validate_with_login"
	EndpointNewSession    = "/authentication/session/new"
	EndpointAccount       = "/account"
	EndpointDeleteSession = "/authentication/session"
)

const (
	keyAPIKey        = "api_key"
	keyRequestToken  = "request_token"
	keySessionID     = "session_id"
	keySuccess       = "success"
	keyStatusCode    = "status_code"
	keyStatusMessage = "status_message"
	keyID            = "id"
	keyUsername      = "username"
)

// Config holds client settings.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	UserAgent  string
}

// Client issues the authentication calls. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	userAgent  string
}

// Account is the subset of /account the login chain needs.
type Account struct {
	ID       int64
	Username string
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("tmdb base url must be http or https")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     cfg.APIKey,
		httpClient: hc,
		userAgent:  cfg.UserAgent,
	}, nil
}

// NewRequestToken issues a fresh, unvalidated request token.
func (c *Client) NewRequestToken(ctx context.Context) (string, error) {
	p, err := c.call(ctx, http.MethodGet, EndpointRequestToken, nil, nil)
	if err != nil {
		return "", err
	}
	return p.requiredString(EndpointRequestToken, keyRequestToken)
}

// ValidateWithLogin binds username and password to requestToken. The returned
// token is the one to pass to NewSession; TMDB echoes the same value.
func (c *Client) ValidateWithLogin(ctx context.Context, requestToken, username, password string) (string, error) {
	body := map[string]string{
		keyUsername:     username,
		"password":      password,
		keyRequestToken: requestToken,
	}
	p, err := c.call(ctx, http.MethodPost, EndpointValidateLogin, nil, body)
	if err != nil {
		return "", err
	}
	ok, err := p.requiredBool(EndpointValidateLogin, keySuccess)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLoginNotConfirmed
	}
	if validated, err := p.requiredString(EndpointValidateLogin, keyRequestToken); err == nil {
		return validated, nil
	}
	return requestToken, nil
}

// NewSession exchanges a validated request token for a session id.
func (c *Client) NewSession(ctx context.Context, validatedToken string) (string, error) {
	body := map[string]string{keyRequestToken: validatedToken}
	p, err := c.call(ctx, http.MethodPost, EndpointNewSession, nil, body)
	if err != nil {
		return "", err
	}
	return p.requiredString(EndpointNewSession, keySessionID)
}

// Account resolves the account behind sessionID.
func (c *Client) Account(ctx context.Context, sessionID string) (Account, error) {
	q := url.Values{}
	q.Set(keySessionID, sessionID)
	p, err := c.call(ctx, http.MethodGet, EndpointAccount, q, nil)
	if err != nil {
		return Account{}, err
	}
	id, err := p.requiredInt64(EndpointAccount, keyID)
	if err != nil {
		return Account{}, err
	}
	name, _ := p.optionalString(keyUsername)
	return Account{ID: id, Username: name}, nil
}

// DeleteSession invalidates sessionID on the remote side.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	body := map[string]string{keySessionID: sessionID}
	p, err := c.call(ctx, http.MethodDelete, EndpointDeleteSession, nil, body)
	if err != nil {
		return err
	}
	ok, err := p.requiredBool(EndpointDeleteSession, keySuccess)
	if err != nil {
		return err
	}
	if !ok {
		return &MissingFieldError{Endpoint: EndpointDeleteSession, Field: keySuccess}
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, query url.Values, body any) (payload, error) {
	req, err := c.newRequest(ctx, method, endpoint, query, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error repeats the request URL, which carries the api key
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
	}()
	return decodeResponse(endpoint, resp)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body any) (*http.Request, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set(keyAPIKey, c.apiKey)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint+"?"+q.Encode(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json;charset=utf-8")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}
