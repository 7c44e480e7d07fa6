// ofexport - Openfire Administrative Data Export Toolkit
// Copyright 2026 The ofexport Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/openfire-tools/ofexport

/*
client.go - Core Openfire REST API Client

This file provides the Client struct and HTTP communication layer for the
Openfire REST API plugin (/plugins/restapi/v1). It covers the read-only
surface the export pipelines consume: users, sessions, chat rooms, room
occupants, security audit logs and system properties.

Client features:
  - Shared-secret authentication via the Authorization header
  - Configurable request timeout and TLS verification toggle
  - Automatic HTTP 429 handling with exponential backoff (honors Retry-After)
  - Typed error classification (see errors.go)
  - Tolerant collection decoding (see internal/models/openfire)
*/
package openfire

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/openfire-tools/ofexport/internal/metrics"
	models "github.com/openfire-tools/ofexport/internal/models/openfire"
)

const apiBasePath = "/plugins/restapi/v1"

// maxErrorBodySize limits how much of a response body is read for error
// reporting, preventing unbounded allocation on large error responses.
const maxErrorBodySize = 64 * 1024 // 64KB

// Affiliation buckets for per-user room membership queries. AffiliationCurrent
// selects rooms the user is presently joined to rather than a stored
// affiliation.
const (
	AffiliationCurrent = "current"
	AffiliationOwner   = "owner"
	AffiliationAdmin   = "admin"
	AffiliationMember  = "member"
	AffiliationOutcast = "outcast"
)

// AffiliationBuckets lists the four stored-affiliation buckets in the order
// they appear in export documents.
var AffiliationBuckets = []string{
	AffiliationOwner, AffiliationAdmin, AffiliationMember, AffiliationOutcast,
}

// UserDirectory is the per-user read surface consumed by the user export
// pipeline. Retry and circuit-breaking policy live behind this interface so
// enrichment logic never needs to change when resilience policy does.
type UserDirectory interface {
	ListUsers(ctx context.Context, search string) ([]models.User, error)
	GetUserSessions(ctx context.Context, username string) ([]models.Session, error)
	GetUserRooms(ctx context.Context, username, affiliation string) ([]string, error)
}

// RoomDirectory is the chat-room read surface consumed by the room export
// pipeline.
type RoomDirectory interface {
	ListRooms(ctx context.Context, service, roomType, search string) ([]models.Room, error)
	GetRoomOccupants(ctx context.Context, service, room string) ([]models.Occupant, error)
}

// SecurityAuditLog is the audit-log read surface consumed by the security-log
// export pipeline.
type SecurityAuditLog interface {
	GetSecurityLogs(ctx context.Context, q SecurityLogQuery) ([]models.SecurityLogEntry, error)
}

// SystemProperties exposes server configuration properties (used to discover
// the XMPP domain for document metadata).
type SystemProperties interface {
	GetSystemProperty(ctx context.Context, key string) (string, error)
}

// SecurityLogQuery selects a slice of the security audit log. StartTime and
// EndTime are epoch seconds; zero means unbounded. Username empty means all
// users. Limit zero means the server default.
type SecurityLogQuery struct {
	Username  string
	Offset    int
	Limit     int
	StartTime int64
	EndTime   int64
}

// Config configures a Client.
type Config struct {
	// BaseURL is the scheme://host[:port] of the Openfire admin console,
	// e.g. https://localhost:9091.
	BaseURL string

	// Secret is the REST API plugin shared secret, sent in the
	// Authorization header.
	Secret string

	// Timeout bounds each HTTP request. Zero means DefaultTimeout.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate validation, for servers
	// with self-signed certificates.
	InsecureSkipVerify bool

	// MaxRetries bounds retries on HTTP 429. Zero means DefaultMaxRetries.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay, doubled each retry.
	// Zero means DefaultRetryBaseDelay.
	RetryBaseDelay time.Duration
}

// Client defaults.
const (
	DefaultTimeout        = 10 * time.Second
	DefaultMaxRetries     = 5
	DefaultRetryBaseDelay = 1 * time.Second
)

// Client talks to the Openfire REST API plugin. Safe for concurrent use.
type Client struct {
	baseURL        string
	secret         string
	httpClient     *http.Client
	maxRetries     int
	retryBaseDelay time.Duration
}

// Compile-time interface checks.
var (
	_ UserDirectory    = (*Client)(nil)
	_ RoomDirectory    = (*Client)(nil)
	_ SecurityAuditLog = (*Client)(nil)
	_ SystemProperties = (*Client)(nil)
)

// NewClient creates an Openfire REST API client from cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	retryBaseDelay := cfg.RetryBaseDelay
	if retryBaseDelay == 0 {
		retryBaseDelay = DefaultRetryBaseDelay
	}

	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // explicit operator opt-in for self-signed certs
		}
	}

	return &Client{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		secret:         cfg.Secret,
		httpClient:     &http.Client{Timeout: timeout, Transport: transport},
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Ping verifies connectivity and credentials by requesting the user listing
// with a zero-result search.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "ping", "/users", url.Values{"search": []string{" "}})
	return err
}

// ListUsers retrieves all users, optionally filtered by a wildcard search on
// the username.
func (c *Client) ListUsers(ctx context.Context, search string) ([]models.User, error) {
	params := url.Values{}
	if search != "" {
		params.Set("search", search)
	}
	body, err := c.get(ctx, "list users", "/users", params)
	if err != nil {
		return nil, err
	}
	return decodeCollection[models.User](body, "users")
}

// GetUserSessions retrieves the live sessions of one user. A user with no
// open connections yields an empty slice, not an error.
func (c *Client) GetUserSessions(ctx context.Context, username string) ([]models.Session, error) {
	body, err := c.get(ctx, "get user sessions", "/sessions/"+url.PathEscape(username), nil)
	if err != nil {
		return nil, err
	}
	return decodeCollection[models.Session](body, "sessions")
}

// GetUserRooms retrieves the names of the rooms related to a user for one
// affiliation bucket (owner/admin/member/outcast) or, with
// AffiliationCurrent, the rooms the user is presently joined to.
func (c *Client) GetUserRooms(ctx context.Context, username, affiliation string) ([]string, error) {
	params := url.Values{"affiliation": []string{affiliation}}
	body, err := c.get(ctx, "get user rooms", "/users/"+url.PathEscape(username)+"/rooms", params)
	if err != nil {
		return nil, err
	}
	return decodeCollection[string](body, "roomNames")
}

// ListRooms retrieves chat rooms on a group-chat service. roomType is
// "public" or "all"; search is an optional wildcard filter on the room name.
func (c *Client) ListRooms(ctx context.Context, service, roomType, search string) ([]models.Room, error) {
	params := url.Values{
		"servicename": []string{service},
		"type":        []string{roomType},
	}
	if search != "" {
		params.Set("search", search)
	}
	body, err := c.get(ctx, "list rooms", "/chatrooms", params)
	if err != nil {
		return nil, err
	}
	return decodeCollection[models.Room](body, "chatRooms")
}

// GetRoomOccupants retrieves the current occupant roster of a room.
func (c *Client) GetRoomOccupants(ctx context.Context, service, room string) ([]models.Occupant, error) {
	params := url.Values{"servicename": []string{service}}
	body, err := c.get(ctx, "get room occupants", "/chatrooms/"+url.PathEscape(room)+"/occupants", params)
	if err != nil {
		return nil, err
	}
	// Older plugin versions expose the roster under "participants".
	occupants, err := decodeCollection[models.Occupant](body, "occupants")
	if err == nil && len(occupants) == 0 {
		if alt, altErr := decodeCollection[models.Occupant](body, "participants"); altErr == nil && len(alt) > 0 {
			return alt, nil
		}
	}
	return occupants, err
}

// GetSecurityLogs retrieves security audit log entries. Window bounds are
// epoch seconds throughout; this client is the only place unit conversion for
// the wire happens.
func (c *Client) GetSecurityLogs(ctx context.Context, q SecurityLogQuery) ([]models.SecurityLogEntry, error) {
	params := url.Values{}
	if q.Username != "" {
		params.Set("username", q.Username)
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.StartTime > 0 {
		params.Set("startTime", strconv.FormatInt(q.StartTime, 10))
	}
	if q.EndTime > 0 {
		params.Set("endTime", strconv.FormatInt(q.EndTime, 10))
	}
	body, err := c.get(ctx, "get security logs", "/logs/security", params)
	if err != nil {
		return nil, err
	}
	return decodeCollection[models.SecurityLogEntry](body, "logs")
}

// GetSystemProperty retrieves one server configuration property value.
func (c *Client) GetSystemProperty(ctx context.Context, key string) (string, error) {
	body, err := c.get(ctx, "get system property", "/system/properties/"+url.PathEscape(key), nil)
	if err != nil {
		return "", err
	}
	var prop struct {
		Key   string `json:"@key"`
		Value string `json:"@value"`
	}
	if err := json.Unmarshal(body, &prop); err != nil {
		return "", fmt.Errorf("decode system property %s: %w", key, err)
	}
	return prop.Value, nil
}

// get performs an authenticated GET and returns the response body for 2xx
// responses. Non-2xx responses are decoded into the plugin's error envelope
// and classified into a typed *APIError.
func (c *Client) get(ctx context.Context, op, path string, params url.Values) (body []byte, err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.APIRequests.WithLabelValues(op, outcome).Inc()
	}()

	reqURL := c.baseURL + apiBasePath + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	resp, err := c.doRequestWithRateLimit(ctx, op, reqURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, transportError(op, err)
		}
		return body, nil
	}

	body = readBodyForError(resp.Body)
	var env errorEnvelope
	// Best effort: many failure modes (proxies, 5xx) produce non-JSON bodies.
	_ = json.Unmarshal(body, &env)
	if env.Message == "" && len(body) > 0 {
		env.Message = strings.TrimSpace(string(body))
	}
	return nil, classify(op, resp.StatusCode, env)
}

// doRequestWithRateLimit performs an HTTP GET with automatic rate limit
// handling: exponential backoff on HTTP 429, honoring Retry-After when
// present. The context cancels backoff waits.
func (c *Client) doRequestWithRateLimit(ctx context.Context, op, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, transportError(op, ctx.Err())
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, transportError(op, err)
		}
		req.Header.Set("Authorization", c.secret)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, transportError(op, err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close() // retrying anyway

		if attempt == c.maxRetries {
			lastErr = transportError(op, fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries))
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, transportError(op, ctx.Err())
		}
	}

	return nil, lastErr
}

// decodeCollection decodes a collection response body that may be a bare
// array or an object keyed by the plural collection name; either shape may
// further wrap elements per models.FlexList. A missing key decodes to an
// empty slice.
func decodeCollection[T any](body []byte, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		var fl models.FlexList[T]
		if err := json.Unmarshal(trimmed, &fl); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return fl.Slice(), nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	raw, ok := envelope[key]
	if !ok {
		return []T{}, nil
	}
	var fl models.FlexList[T]
	if err := json.Unmarshal(raw, &fl); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return fl.Slice(), nil
}

// readBodyForError reads at most maxErrorBodySize of a response body for
// diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
