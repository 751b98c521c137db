// Package fhir implements the ClinicalSource port over a FHIR R4 REST API
// with OAuth2 password-grant authentication.
package fhir

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const fhirScopes = "openid api:fhir " +
	"user/Patient.read user/Encounter.read " +
	"user/Condition.read user/AllergyIntolerance.read " +
	"user/MedicationRequest.read user/Medication.read " +
	"user/Immunization.read user/Appointment.read " +
	"user/Practitioner.read user/PractitionerRole.read " +
	"user/Organization.read user/Location.read user/Observation.read"

// Options configures a Client.
type Options struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	// InsecureSkipVerify disables TLS verification for self-signed local
	// deployments. Never set in production.
	InsecureSkipVerify bool
}

// Client is an authenticated FHIR R4 HTTP client. The token is shared across
// concurrent tool executions behind a mutex and renewed 60 seconds before
// expiry; a dead refresh token falls back to the password grant.
type Client struct {
	logger *slog.Logger
	opts   Options
	http   *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func NewClient(logger *slog.Logger, opts Options) *Client {
	transport := http.DefaultTransport
	if opts.InsecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &Client{
		logger: logger,
		opts:   opts,
		http:   &http.Client{Timeout: 30 * time.Second, Transport: transport},
	}
}

// Search runs a FHIR search and unwraps the Bundle into its resource entries.
func (c *Client) Search(ctx context.Context, resourceType string, params map[string]string) ([]map[string]any, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}

	body, err := c.request(ctx, resourceType+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var bundle struct {
		ResourceType string `json:"resourceType"`
		Entry        []struct {
			Resource map[string]any `json:"resource"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if bundle.ResourceType != "Bundle" {
		return nil, fmt.Errorf("expected Bundle, got %s", bundle.ResourceType)
	}

	resources := make([]map[string]any, 0, len(bundle.Entry))
	for _, e := range bundle.Entry {
		if e.Resource != nil {
			resources = append(resources, e.Resource)
		}
	}
	return resources, nil
}

// Get fetches a single resource by ID.
func (c *Client) Get(ctx context.Context, resourceType, id string) (map[string]any, error) {
	body, err := c.request(ctx, resourceType+"/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var resource map[string]any
	if err := json.Unmarshal(body, &resource); err != nil {
		return nil, fmt.Errorf("decode resource: %w", err)
	}
	return resource, nil
}

func (c *Client) request(ctx context.Context, path string) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimSuffix(c.opts.BaseURL, "/")+"/"+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/fhir+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fhir request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fhir returned status %d for %s", resp.StatusCode, path)
	}
	return body, nil
}

// token returns a valid access token, renewing when inside the 60 second
// expiry buffer.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt.Add(-60*time.Second)) {
		return c.accessToken, nil
	}

	if c.refreshToken != "" {
		if err := c.grant(ctx, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {c.refreshToken},
			"client_id":     {c.opts.ClientID},
			"client_secret": {c.opts.ClientSecret},
		}); err == nil {
			return c.accessToken, nil
		}
		c.logger.Warn("token refresh failed, falling back to password grant")
	}

	if err := c.grant(ctx, url.Values{
		"grant_type":    {"password"},
		"username":      {c.opts.Username},
		"password":      {c.opts.Password},
		"user_role":     {"users"},
		"client_id":     {c.opts.ClientID},
		"client_secret": {c.opts.ClientSecret},
		"scope":         {fhirScopes},
	}); err != nil {
		return "", err
	}
	return c.accessToken, nil
}

// grant posts a token request and stores the result. Caller holds the mutex.
func (c *Client) grant(ctx context.Context, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return fmt.Errorf("token response carried no access_token")
	}

	c.accessToken = payload.AccessToken
	if payload.RefreshToken != "" {
		c.refreshToken = payload.RefreshToken
	}
	expiresIn := payload.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	c.expiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return nil
}
