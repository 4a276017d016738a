package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/partocare/partosync/internal/utils"
	"github.com/partocare/partosync/models"
)

var (
	ErrUnauthorized       = errors.New("client unauthorized")
	ErrDeviceNotAccepted  = errors.New("device not accepted by server")
	ErrUnknownSyncTarget  = errors.New("unknown sync target table")
	ErrServerUnavailable  = errors.New("server unavailable")
	ErrDeviceAlreadyBound = errors.New("device already registered")
)

type HTTPClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

type httpServerAdapter struct {
	client *resty.Client

	mu    sync.RWMutex
	token string
}

func NewHTTPServerAdapter(cfg HTTPClientConfig) ServerAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &httpServerAdapter{client: cli}
}

func (h *httpServerAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpServerAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *httpServerAdapter) Register(ctx context.Context, staff models.Staff) (models.Staff, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(staff).
		Post("/api/auth/register")
	if err != nil {
		return models.Staff{}, fmt.Errorf("register request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Staff{}, err
	}

	return h.adoptToken(resp, staff)
}

func (h *httpServerAdapter) Login(ctx context.Context, staff models.Staff) (models.Staff, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(staff).
		Post("/api/auth/login")
	if err != nil {
		return models.Staff{}, fmt.Errorf("login request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Staff{}, err
	}

	return h.adoptToken(resp, staff)
}

func (h *httpServerAdapter) RegisterDevice(ctx context.Context, device models.Device) (models.Device, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(device).
		Post("/api/devices")
	if err != nil {
		return models.Device{}, fmt.Errorf("register device request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Device{}, err
	}

	var registered models.Device
	if err = json.Unmarshal(resp.Body(), &registered); err != nil {
		return models.Device{}, fmt.Errorf("decode register device response: %w", err)
	}

	return registered, nil
}

func (h *httpServerAdapter) Pull(ctx context.Context, table string, request models.PullRequest) (models.PullResponse, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(request).
		Post(fmt.Sprintf("/api/sync/%s/pull", table))
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("pull request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PullResponse{}, err
	}

	var response models.PullResponse
	if err = json.Unmarshal(resp.Body(), &response); err != nil {
		return models.PullResponse{}, fmt.Errorf("decode pull response: %w", err)
	}

	return response, nil
}

func (h *httpServerAdapter) Push(ctx context.Context, table string, request models.PushRequest) (models.PushResponse, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(request).
		Post(fmt.Sprintf("/api/sync/%s/push", table))
	if err != nil {
		return models.PushResponse{}, fmt.Errorf("push request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PushResponse{}, err
	}

	var response models.PushResponse
	if err = json.Unmarshal(resp.Body(), &response); err != nil {
		return models.PushResponse{}, fmt.Errorf("decode push response: %w", err)
	}

	return response, nil
}

// adoptToken extracts the bearer token from an auth response, remembers it
// for subsequent calls, and returns the staff identity baked into it.
func (h *httpServerAdapter) adoptToken(resp *resty.Response, staff models.Staff) (models.Staff, error) {
	token, err := utils.ParseBearerToken(resp.Header().Get("Authorization"))
	if err != nil {
		return models.Staff{}, fmt.Errorf("parse bearer token: %w", err)
	}

	staffID, err := utils.ParseStaffIDFromJWT(token)
	if err != nil {
		return models.Staff{}, fmt.Errorf("parse staff id: %w", err)
	}

	h.SetToken(token)
	return models.Staff{StaffID: staffID, Login: staff.Login, Name: staff.Name, Role: staff.Role}, nil
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))

	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrDeviceNotAccepted
	case http.StatusNotFound:
		if strings.Contains(strings.ToLower(body), "unknown sync target") {
			return ErrUnknownSyncTarget
		}
	case http.StatusConflict:
		if strings.Contains(strings.ToLower(body), "device") {
			return ErrDeviceAlreadyBound
		}
	}

	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("%w: http %d", ErrServerUnavailable, resp.StatusCode())
	}

	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	return fmt.Errorf("http %d: %s", resp.StatusCode(), body)
}
