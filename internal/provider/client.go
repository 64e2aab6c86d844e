// Package provider implements the identity provider admin API client. The
// provider owns credentials, authentication capability and group membership;
// this client only provisions and patches accounts.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"enrolld/internal/signup/models"
	"enrolld/pkg/domain"
	"enrolld/pkg/platform/sentinel"
)

// Config carries the provider endpoint and the service credentials used to
// obtain admin API tokens.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  *tokenSource
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("provider client credentials are required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		tokens:  newTokenSource(cfg.BaseURL, cfg.ClientID, cfg.ClientSecret, httpClient),
	}, nil
}

// accountPayload is the provider's wire representation of an account.
// PhoneNumber is a pointer: an absent phone is omitted from the payload
// entirely, never sent as an empty string.
type accountPayload struct {
	Email       string   `json:"email"`
	MemberID    string   `json:"member_id,omitempty"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	DisplayName string   `json:"display_name,omitempty"`
	DateOfBirth string   `json:"date_of_birth"`
	Country     string   `json:"country,omitempty"`
	PhoneNumber *string  `json:"phone_number,omitempty"`
	Source      string   `json:"source,omitempty"`
	Groups      []string `json:"groups,omitempty"`
}

func toPayload(account models.ProviderAccount) accountPayload {
	p := accountPayload{
		Email:       account.Email,
		MemberID:    account.MemberID.String(),
		FirstName:   account.FirstName,
		LastName:    account.LastName,
		DisplayName: account.DisplayName,
		DateOfBirth: account.DateOfBirth,
		Country:     account.Country,
		Source:      account.Source,
	}
	if account.PhoneNumber != "" {
		phone := account.PhoneNumber
		p.PhoneNumber = &phone
	}
	for _, g := range account.Groups {
		p.Groups = append(p.Groups, g.String())
	}
	return p
}

func fromPayload(p accountPayload) *models.ProviderAccount {
	account := &models.ProviderAccount{
		Email:       p.Email,
		MemberID:    domain.MemberID(p.MemberID),
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DisplayName: p.DisplayName,
		DateOfBirth: p.DateOfBirth,
		Country:     p.Country,
		Source:      p.Source,
	}
	if p.PhoneNumber != nil {
		account.PhoneNumber = *p.PhoneNumber
	}
	for _, g := range p.Groups {
		account.Groups = append(account.Groups, domain.MembershipGroup(g))
	}
	return account
}

func (c *Client) CreateAccount(ctx context.Context, account models.ProviderAccount) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/admin/accounts", toPayload(account), &created)
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	return created.ID, nil
}

func (c *Client) SetCredential(ctx context.Context, email, credential string) error {
	body := map[string]string{"credential": credential}
	path := "/admin/accounts/" + url.PathEscape(email) + "/credential"
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	return nil
}

func (c *Client) AddToGroup(ctx context.Context, email string, group domain.MembershipGroup) error {
	body := map[string]string{"group": group.String()}
	path := "/admin/accounts/" + url.PathEscape(email) + "/groups"
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("add to group: %w", err)
	}
	return nil
}

func (c *Client) AccountByEmail(ctx context.Context, email string) (*models.ProviderAccount, error) {
	var payload accountPayload
	path := "/admin/accounts/" + url.PathEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return fromPayload(payload), nil
}

func (c *Client) UpdateAttributes(ctx context.Context, email string, attrs map[string]string) error {
	path := "/admin/accounts/" + url.PathEscape(email)
	if err := c.do(ctx, http.MethodPatch, path, attrs, nil); err != nil {
		return fmt.Errorf("update attributes: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("admin token: %w", err)
	}

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return sentinel.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return sentinel.ErrConflict
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: provider returned %d", sentinel.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("provider returned %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
