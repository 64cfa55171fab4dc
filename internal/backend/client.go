// Package backend реализует HTTP-клиент REST-бэкенда LMS.
//
// Client добавляет к каждому запросу заголовок X-Device-Id и bearer-токен
// из хранилища сессии, ограничивает частоту запросов и переводит статусы
// ответа в виды ошибок apperr: 404 в NotFound, 5xx в Server, прочие 4xx в
// Rejected с сообщением сервера, транспортные сбои в Network.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/lms-portal/internal/config"
	"github.com/magabrotheeeer/lms-portal/internal/lib/apperr"
	"github.com/magabrotheeeer/lms-portal/internal/lib/loose"
	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
)

// DeviceHeader заголовок с идентификатором устройства.
const DeviceHeader = "X-Device-Id"

const maxBodySize = 4 << 20

// TokenSource отдаёт текущий токен доступа; пустая строка означает запрос без авторизации.
type TokenSource interface {
	Token() string
}

// Client клиент REST-бэкенда.
type Client struct {
	baseURL    string
	deviceID   string
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет http.Client, например на инструментированный.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLimiter подменяет ограничитель частоты запросов.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient создаёт клиент по настройкам backend.
func NewClient(cfg config.Backend, tokens TokenSource, log *slog.Logger, opts ...Option) *Client {
	deviceID := cfg.DeviceID
	if deviceID == "" {
		deviceID = DefaultDeviceID()
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		deviceID:   deviceID,
		tokens:     tokens,
		httpClient: DefaultHTTPClient(cfg),
		limiter:    rate.NewLimiter(limit, burst),
		log:        log.With(slog.String("component", "backend.Client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultHTTPClient HTTP-клиент с таймаутом из cfg, по умолчанию 10s.
func DefaultHTTPClient(cfg config.Backend) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// DefaultDeviceID стабильный идентификатор машины, выведенный из имени хоста.
func DefaultDeviceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte("lms-portal."+host)).String()
}

// DeviceID идентификатор устройства, отправляемый в X-Device-Id.
func (c *Client) DeviceID() string {
	return c.deviceID
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(DeviceHeader, c.deviceID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// Do выполняет JSON-запрос и возвращает тело успешного ответа.
// body == nil означает запрос без тела; строка кодируется как JSON-строка.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	const op = "backend.Do"
	var reader io.Reader
	contentType := ""
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		reader = &buf
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, query, reader, contentType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.send(req)
}

// DoMultipart отправляет файл полем field в multipart/form-data.
func (c *Client) DoMultipart(ctx context.Context, path, field, filename string, file io.Reader) ([]byte, error) {
	const op = "backend.DoMultipart"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf, mw.FormDataContentType())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.send(req)
}

func (c *Client) send(req *http.Request) ([]byte, error) {
	log := c.log.With(
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, apperr.New(apperr.KindNetwork, 0, "", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("request failed", sl.Err(err))
		return nil, apperr.New(apperr.KindNetwork, 0, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apperr.New(apperr.KindNetwork, resp.StatusCode, "", err)
	}

	log.Debug("response received", slog.Int("status", resp.StatusCode))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, StatusError(resp.StatusCode, body)
}

// StatusError переводит неуспешный статус ответа в ошибку apperr,
// сохраняя сообщение сервера.
func StatusError(status int, body []byte) error {
	msg := loose.ErrorMessage(body)
	cause := errors.New("unexpected status: " + http.StatusText(status))
	switch {
	case status == http.StatusNotFound:
		return apperr.New(apperr.KindNotFound, status, msg, cause)
	case status >= 500:
		return apperr.New(apperr.KindServer, status, msg, cause)
	case status >= 400:
		return apperr.New(apperr.KindRejected, status, msg, cause)
	default:
		return apperr.New(apperr.KindServer, status, msg, cause)
	}
}
