// Package api is the REST client for the campus chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"campuschat/models"
)

// DefaultRequestTimeout bounds REST calls when no client override exists.
const DefaultRequestTimeout = 15 * time.Second

// TokenSource supplies the Authorization header value for each request.
// session.Session satisfies it.
type TokenSource interface {
	Authorization() (string, error)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, body)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the REST root, e.g. "http://localhost:5000".
	BaseURL string
	// Auth supplies bearer credentials per request.
	Auth TokenSource
	// HTTPClient overrides the default client (tests, custom transports).
	HTTPClient *http.Client
}

// Client issues authenticated REST calls against the chat backend.
type Client struct {
	baseURL    string
	auth       TokenSource
	httpClient *http.Client
}

// NewClient validates config and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: base URL is required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("api: token source is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}

	return &Client{
		baseURL:    base,
		auth:       cfg.Auth,
		httpClient: httpClient,
	}, nil
}

// Notifications fetches the full notification feed for a user.
func (c *Client) Notifications(ctx context.Context, userID string) ([]models.Notification, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	var out []models.Notification
	if err := c.do(ctx, http.MethodGet, "/notifications/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, fmt.Errorf("fetch notifications for user %q: %w", userID, err)
	}
	return out, nil
}

// MarkNotificationSeen confirms one seen-mutation remotely.
func (c *Client) MarkNotificationSeen(ctx context.Context, notificationID string) error {
	if notificationID == "" {
		return errors.New("notification id is required")
	}

	if err := c.do(ctx, http.MethodPut, "/notifications/seen/"+url.PathEscape(notificationID), nil, nil); err != nil {
		return fmt.Errorf("mark notification %q seen: %w", notificationID, err)
	}
	return nil
}

// MarkAllNotificationsSeen confirms a batched seen-mutation remotely.
func (c *Client) MarkAllNotificationsSeen(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id is required")
	}

	if err := c.do(ctx, http.MethodPut, "/notifications/seen-all/"+url.PathEscape(userID), nil, nil); err != nil {
		return fmt.Errorf("mark all notifications seen for user %q: %w", userID, err)
	}
	return nil
}

// CreateNotification posts a new notification for another user's feed.
func (c *Client) CreateNotification(ctx context.Context, notification models.Notification) error {
	if err := models.ValidateNotificationType(notification.Type); err != nil {
		return err
	}

	if err := c.do(ctx, http.MethodPost, "/notifications", notification, nil); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// Group fetches one group with its roster.
func (c *Client) Group(ctx context.Context, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, errors.New("group id is required")
	}

	var out models.Group
	if err := c.do(ctx, http.MethodGet, "/groups/"+url.PathEscape(groupID), nil, &out); err != nil {
		return nil, fmt.Errorf("fetch group %q: %w", groupID, err)
	}
	return &out, nil
}

// GroupPatch carries editable group fields for UpdateGroup.
type GroupPatch struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
}

// UpdateGroup edits group metadata and returns the canonical group.
func (c *Client) UpdateGroup(ctx context.Context, groupID string, patch GroupPatch) (*models.Group, error) {
	if groupID == "" {
		return nil, errors.New("group id is required")
	}

	var out models.Group
	if err := c.do(ctx, http.MethodPut, "/groups/"+url.PathEscape(groupID), patch, &out); err != nil {
		return nil, fmt.Errorf("update group %q: %w", groupID, err)
	}
	return &out, nil
}

// AddGroupMembers adds users to a group and returns the canonical group.
func (c *Client) AddGroupMembers(ctx context.Context, groupID string, userIDs []string) (*models.Group, error) {
	if groupID == "" {
		return nil, errors.New("group id is required")
	}
	if len(userIDs) == 0 {
		return nil, errors.New("at least one user id is required")
	}

	body := struct {
		UserIDs []string `json:"user_ids"`
	}{UserIDs: userIDs}

	var out models.Group
	if err := c.do(ctx, http.MethodPost, "/groups/"+url.PathEscape(groupID)+"/members", body, &out); err != nil {
		return nil, fmt.Errorf("add members to group %q: %w", groupID, err)
	}
	return &out, nil
}

// RemoveGroupMember removes one user and returns the canonical group.
func (c *Client) RemoveGroupMember(ctx context.Context, groupID, userID string) (*models.Group, error) {
	if groupID == "" {
		return nil, errors.New("group id is required")
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	var out models.Group
	if err := c.do(ctx, http.MethodDelete, "/groups/"+url.PathEscape(groupID)+"/members/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, fmt.Errorf("remove member %q from group %q: %w", userID, groupID, err)
	}
	return &out, nil
}

// LeaveGroup removes the calling user from a group.
func (c *Client) LeaveGroup(ctx context.Context, groupID string) error {
	if groupID == "" {
		return errors.New("group id is required")
	}

	if err := c.do(ctx, http.MethodPost, "/groups/"+url.PathEscape(groupID)+"/leave", nil, nil); err != nil {
		return fmt.Errorf("leave group %q: %w", groupID, err)
	}
	return nil
}

// DeleteGroup deletes a group entirely.
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	if groupID == "" {
		return errors.New("group id is required")
	}

	if err := c.do(ctx, http.MethodDelete, "/groups/"+url.PathEscape(groupID), nil, nil); err != nil {
		return fmt.Errorf("delete group %q: %w", groupID, err)
	}
	return nil
}

// SearchUsers looks up member candidates matching a query string.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.UserRef, error) {
	path := "/groups/search/users?query=" + url.QueryEscape(query)

	var out []models.UserRef
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("search users %q: %w", query, err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	auth, err := c.auth.Authorization()
	if err != nil {
		return fmt.Errorf("resolve credentials: %w", err)
	}
	req.Header.Set("Authorization", auth)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}
