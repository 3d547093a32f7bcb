package portalapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/DriverPortal/internal/broker/messages"
	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/BearBump/DriverPortal/internal/services/session"
	"github.com/pkg/errors"
)

const (
	DefaultBaseURL = "https://api.gocab.tech/api"
	DefaultTimeout = 10 * time.Second

	loginPath = "/employees/auth/employee/login"
	tripsPath = "/employees/driver/trips"
)

// TokenSource is satisfied by *session.Store.
type TokenSource interface {
	GetAccessToken() (string, bool)
}

// Device identifies this portal instance to the upstream auth endpoint.
type Device struct {
	UUID         string
	Name         string
	FCMToken     string
	ClientID     string
	ClientSecret string
}

type Client struct {
	baseURL string
	device  Device
	tokens  TokenSource
	httpc   *http.Client
}

func New(baseURL string, timeout time.Duration, device Device) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		device:  device,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithTokens sets the bearer token source. Login does not need one.
func (c *Client) WithTokens(ts TokenSource) *Client {
	c.tokens = ts
	return c
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type loginData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		Driver struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Email  string `json:"email"`
			Phone  string `json:"phone"`
			Code   string `json:"code"`
			Gender string `json:"gender"`
		} `json:"driver"`
	} `json:"user"`
}

func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.Session, error) {
	form := url.Values{}
	form.Set("tenant_id", creds.TenantID)
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)
	form.Set("device_uuid", c.device.UUID)
	form.Set("device_name", c.device.Name)
	form.Set("fcm_token", c.device.FCMToken)
	form.Set("grant_type", "password")
	form.Set("client_id", c.device.ClientID)
	form.Set("client_secret", c.device.ClientSecret)
	form.Set("force_logout", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return models.Session{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.Session{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	var body envelope[loginData]
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	// 4xx с телом success=false — это отказ, а не сбой транспорта
	if resp.StatusCode/100 == 4 || (decodeErr == nil && !body.Success) {
		msg := body.Message
		if msg == "" {
			msg = fmt.Sprintf("portal api http %d", resp.StatusCode)
		}
		return models.Session{}, errors.Wrap(session.ErrRejected, msg)
	}
	if resp.StatusCode/100 != 2 {
		return models.Session{}, fmt.Errorf("portal api http %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return models.Session{}, errors.Wrap(decodeErr, "decode")
	}

	d := body.Data.User.Driver
	return models.Session{
		AccessToken:  body.Data.AccessToken,
		RefreshToken: body.Data.RefreshToken,
		TenantID:     creds.TenantID,
		Driver: models.Driver{
			ID:     d.ID,
			Name:   d.Name,
			Email:  d.Email,
			Phone:  d.Phone,
			Code:   d.Code,
			Gender: d.Gender,
		},
	}, nil
}

// FetchTrips reads the driver's trips. A 401 maps to session.ErrUnauthenticated.
func (c *Client) FetchTrips(ctx context.Context) ([]models.Trip, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tripsPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if tok, ok := c.tokens.GetAccessToken(); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.Wrap(session.ErrUnauthenticated, "portal api")
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("portal api http %d", resp.StatusCode)
	}

	var body envelope[[]messages.Trip]
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	if !body.Success {
		return nil, fmt.Errorf("portal api: %s", body.Message)
	}
	return messages.TripsToModels(body.Data), nil
}
