package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/readlist/readlist-cli/internal/resilience"
)

const (
	defaultBaseURL  = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token"
	defaultMarket   = "US"
)

// ErrNotFound reports that the API has no episode with the requested id.
var ErrNotFound = eris.New("spotify: episode not found")

// Episode is the subset of the Spotify episode object the pipeline reads.
type Episode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ReleaseDate string `json:"release_date"`
	ExternalURL struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// Client accesses the Spotify Web API with client-credentials auth.
type Client interface {
	GetEpisode(ctx context.Context, id string) (*Episode, error)
	ListEpisodes(ctx context.Context, showID string, limit, offset int) ([]Episode, error)
}

// Options tunes the HTTP client. Zero values use production defaults.
type Options struct {
	BaseURL        string
	TokenURL       string
	Timeout        time.Duration
	RequestsPerSec float64
	Market         string
}

type httpClient struct {
	clientID     string
	clientSecret string
	http         *http.Client
	limiter      *rate.Limiter
	retry        resilience.RetryConfig
	baseURL      string
	tokenURL     string
	market       string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient builds a Client authenticating with the given application
// credentials.
func NewClient(clientID, clientSecret string, opts Options) Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = defaultTokenURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 5
	}
	if opts.Market == "" {
		opts.Market = defaultMarket
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("spotify", "api_call")

	return &httpClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: opts.Timeout},
		limiter:      rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		retry:        retry,
		baseURL:      strings.TrimSuffix(opts.BaseURL, "/"),
		tokenURL:     opts.TokenURL,
		market:       opts.Market,
	}
}

func (c *httpClient) GetEpisode(ctx context.Context, id string) (*Episode, error) {
	var ep Episode
	path := fmt.Sprintf("/episodes/%s?market=%s", url.PathEscape(id), c.market)
	if err := c.getJSON(ctx, path, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

func (c *httpClient) ListEpisodes(ctx context.Context, showID string, limit, offset int) ([]Episode, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	var page struct {
		Items []Episode `json:"items"`
	}
	path := fmt.Sprintf("/shows/%s/episodes?market=%s&limit=%d&offset=%d",
		url.PathEscape(showID), c.market, limit, offset)
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// getJSON performs a rate-limited, retried GET and decodes the response body.
func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	return resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return eris.Wrap(err, "spotify: build request")
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.http.Do(req)
		if err != nil {
			return eris.Wrap(err, "spotify: do request")
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode == http.StatusUnauthorized:
			// Token expired server-side; clear it so the retry re-authenticates.
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			return resilience.NewTransientError(
				eris.New("spotify: unauthorized"), resp.StatusCode)
		case resilience.IsTransientHTTPStatus(resp.StatusCode):
			return resilience.NewTransientError(
				eris.Errorf("spotify: status %d", resp.StatusCode), resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return eris.Errorf("spotify: status %d: %s", resp.StatusCode, body)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return eris.Wrap(err, "spotify: decode response")
		}
		return nil
	})
}

// accessToken returns a cached client-credentials token, refreshing when it
// is within a minute of expiry.
func (c *httpClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "spotify: build token request")
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "spotify: token request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(
				eris.Errorf("spotify: token status %d", resp.StatusCode), resp.StatusCode)
		}
		return "", eris.Errorf("spotify: token status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", eris.Wrap(err, "spotify: decode token")
	}
	if body.AccessToken == "" {
		return "", eris.New("spotify: empty access token")
	}

	c.token = body.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return c.token, nil
}
