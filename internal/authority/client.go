// Package authority is the HTTP client for the external booking service.
// Every booking mutation and every schedule query goes through it; the
// portal keeps no booking state of its own.
package authority

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

	"kovorka/internal/config"
	"kovorka/internal/models"

	"github.com/redis/go-redis/v9"
)

// Client talks to the booking authority with api-key headers and an
// optional Redis read cache for schedule queries.
type Client struct {
	baseURL    string
	apiKey     string
	apiExtra   string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

func NewClient(cfg config.AuthorityConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		apiExtra:   cfg.APIExtra,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseRedisCache configures optional caching for schedule reads. Mutations
// are never cached.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

type errorResponse struct {
	Error string `json:"error"`
}

type nextReservationResponse struct {
	Found bool      `json:"found"`
	Start time.Time `json:"start"`
}

type resourcesResponse struct {
	Resources []*models.Resource `json:"resources"`
}

type freeCountResponse struct {
	Free int `json:"free"`
}

type loginResponse struct {
	UserID  int64  `json:"user_id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

func (c *Client) NextReservationStart(ctx context.Context, resourceID int64, from time.Time) (time.Time, bool, error) {
	endpoint := fmt.Sprintf("%s/api/v1/resources/%d/next-reservation?from=%s",
		c.baseURL, resourceID, url.QueryEscape(from.Format(time.RFC3339)))
	var resp nextReservationResponse
	if err := c.doGet(ctx, "NextReservationStart", endpoint, &resp); err != nil {
		return time.Time{}, false, err
	}
	return resp.Start, resp.Found, nil
}

func (c *Client) ActiveResourcesByType(ctx context.Context, resourceTypeID int64) ([]*models.Resource, error) {
	endpoint := fmt.Sprintf("%s/api/v1/resource-types/%d/resources?status=active", c.baseURL, resourceTypeID)
	cacheKey := fmt.Sprintf("resources:type:%d", resourceTypeID)

	var resp resourcesResponse
	if c.readCache(ctx, cacheKey, &resp) {
		return resp.Resources, nil
	}
	if err := c.doGet(ctx, "ActiveResourcesByType", endpoint, &resp); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, resp)
	return resp.Resources, nil
}

func (c *Client) ActiveResourcesByCategory(ctx context.Context, category string, excludeTypeID int64) ([]*models.Resource, error) {
	endpoint := fmt.Sprintf("%s/api/v1/resources?status=active&category=%s&exclude_type=%d",
		c.baseURL, url.QueryEscape(category), excludeTypeID)
	cacheKey := fmt.Sprintf("resources:category:%s:exclude:%d", category, excludeTypeID)

	var resp resourcesResponse
	if c.readCache(ctx, cacheKey, &resp) {
		return resp.Resources, nil
	}
	if err := c.doGet(ctx, "ActiveResourcesByCategory", endpoint, &resp); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, resp)
	return resp.Resources, nil
}

func (c *Client) FreeEquipmentCount(ctx context.Context, resourceTypeID int64, window models.Window) (int, error) {
	endpoint := fmt.Sprintf("%s/api/v1/resource-types/%d/free-count?start=%s&end=%s",
		c.baseURL, resourceTypeID,
		url.QueryEscape(window.Start.Format(time.RFC3339)),
		url.QueryEscape(window.End.Format(time.RFC3339)))
	var resp freeCountResponse
	// Free counts race with every commit, so they are never cached.
	if err := c.doGet(ctx, "FreeEquipmentCount", endpoint, &resp); err != nil {
		return 0, err
	}
	return resp.Free, nil
}

func (c *Client) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bookings/%d", c.baseURL, id)
	var booking models.Booking
	if err := c.doGet(ctx, "GetBooking", endpoint, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *Client) CreateBooking(ctx context.Context, req *models.CreateBookingRequest, userID int64) (*models.Booking, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bookings?user_id=%d", c.baseURL, userID)
	var booking models.Booking
	if err := c.doPost(ctx, "CreateBooking", endpoint, req, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *Client) ConfirmExtend(ctx context.Context, bookingID int64, newEnd time.Time) (*models.Booking, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bookings/%d/extend-confirm", c.baseURL, bookingID)
	body := map[string]string{"new_end": newEnd.Format(time.RFC3339)}
	var booking models.Booking
	if err := c.doPost(ctx, "ConfirmExtend", endpoint, body, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *Client) CancelBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bookings/%d/cancel", c.baseURL, bookingID)
	var booking models.Booking
	if err := c.doPost(ctx, "CancelBooking", endpoint, nil, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *Client) ChangeOptions(ctx context.Context, bookingID int64) (*models.ChangeOptions, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bookings/%d/change-options", c.baseURL, bookingID)
	var opts models.ChangeOptions
	if err := c.doGet(ctx, "ChangeOptions", endpoint, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

func (c *Client) ApplyChange(ctx context.Context, bookingID int64, resourceID int64) (*models.Booking, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bookings/%d/apply-change", c.baseURL, bookingID)
	body := map[string]int64{"resource_id": resourceID}
	var booking models.Booking
	if err := c.doPost(ctx, "ApplyChange", endpoint, body, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *Client) AddEquipment(ctx context.Context, bookingID int64, items []models.EquipmentItem) ([]*models.Booking, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bookings/%d/equipment", c.baseURL, bookingID)
	body := map[string][]models.EquipmentItem{"items": items}
	var resp struct {
		Bookings []*models.Booking `json:"bookings"`
	}
	if err := c.doPost(ctx, "AddEquipment", endpoint, body, &resp); err != nil {
		return nil, err
	}
	return resp.Bookings, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (int64, string, bool, error) {
	endpoint := fmt.Sprintf("%s/api/v1/auth/login", c.baseURL)
	body := map[string]string{"username": username, "password": password}
	var resp loginResponse
	if err := c.doPost(ctx, "Login", endpoint, body, &resp); err != nil {
		return 0, "", false, err
	}
	return resp.UserID, resp.Name, resp.IsAdmin, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, op, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &models.TransportError{Op: op, Err: err}
	}
	c.addHeaders(req)
	return c.do(op, req, out)
}

func (c *Client) doPost(ctx context.Context, op, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &models.TransportError{Op: op, Err: err}
		}
		reader = strings.NewReader(string(data))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return &models.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(op, req, out)
}

// do executes the request and maps the authority's status codes onto the
// local error taxonomy: 400 validation, 404 not found, 409 conflict, 401/403
// auth, everything 5xx and network-level as retryable transport failures.
func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &models.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.mapError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &models.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) mapError(op string, resp *http.Response) error {
	reason := fmt.Sprintf("http %d", resp.StatusCode)
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		reason = body.Error
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return &models.ValidationError{Reason: reason}
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", reason, models.ErrUnauthorized)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", reason, models.ErrForbidden)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", reason, models.ErrNotFound)
	case resp.StatusCode == http.StatusConflict:
		return &models.ConflictError{Reason: reason}
	default:
		return &models.TransportError{Op: op, Err: errors.New(reason)}
	}
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.apiExtra != "" {
		req.Header.Set("x-api-extra", c.apiExtra)
	}
}
