package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"shelfsync/internal/services"
)

// File describes a document posted to the channel.
type File struct {
	MessageID int64     `json:"message_id"`
	ChannelID int64     `json:"channel_id"`
	FileID    string    `json:"file_id"`
	FileName  string    `json:"file_name"`
	FileSize  int64     `json:"file_size"`
	SentAt    time.Time `json:"-"`
}

// ChannelReader defines the channel operations the sweeper and worker need.
type ChannelReader interface {
	ListRecentFiles(ctx context.Context, limit int) ([]File, error)
	FetchFile(ctx context.Context, file File) (io.ReadCloser, error)
	FindFile(ctx context.Context, messageID int64) (*File, error)
}

// Client talks to a Bot-API style HTTP endpoint for one channel.
type Client struct {
	token      string
	baseURL    string
	channelID  int64
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ ChannelReader = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRequestTimeout bounds each API call. Zero keeps the default.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRequestsPerMinute caps outgoing API calls. Zero disables local pacing.
func WithRequestsPerMinute(perMinute int) Option {
	return func(c *Client) {
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
		}
	}
}

// New creates a channel client.
func New(token, baseURL string, channelID int64, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("bot token required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("api base url required")
	}
	if channelID == 0 {
		return nil, errors.New("channel id required")
	}
	client := &Client{
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		channelID:  channelID,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type documentMessage struct {
	MessageID int64 `json:"message_id"`
	Date      int64 `json:"date"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Document *struct {
		FileID   string `json:"file_id"`
		FileName string `json:"file_name"`
		FileSize int64  `json:"file_size"`
	} `json:"document"`
}

type fileInfo struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
}

// ListRecentFiles returns the newest document posts in the channel, newest
// first, up to limit.
func (c *Client) ListRecentFiles(ctx context.Context, limit int) ([]File, error) {
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(c.channelID, 10))
	params.Set("limit", strconv.Itoa(limit))

	raw, err := c.call(ctx, "getChannelDocuments", params)
	if err != nil {
		return nil, err
	}

	var messages []documentMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, services.Wrap(services.ErrTransient, "telegram", "getChannelDocuments", "decode response", err)
	}

	files := make([]File, 0, len(messages))
	for _, msg := range messages {
		if msg.Document == nil {
			continue
		}
		channelID := msg.Chat.ID
		if channelID == 0 {
			channelID = c.channelID
		}
		files = append(files, File{
			MessageID: msg.MessageID,
			ChannelID: channelID,
			FileID:    msg.Document.FileID,
			FileName:  msg.Document.FileName,
			FileSize:  msg.Document.FileSize,
			SentAt:    time.Unix(msg.Date, 0).UTC(),
		})
	}
	return files, nil
}

// FindFile looks up a single channel message and returns its document, or nil
// when the message carries none.
func (c *Client) FindFile(ctx context.Context, messageID int64) (*File, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(c.channelID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))

	raw, err := c.call(ctx, "getChannelMessage", params)
	if err != nil {
		return nil, err
	}

	var msg documentMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, services.Wrap(services.ErrTransient, "telegram", "getChannelMessage", "decode response", err)
	}
	if msg.Document == nil {
		return nil, nil
	}
	channelID := msg.Chat.ID
	if channelID == 0 {
		channelID = c.channelID
	}
	return &File{
		MessageID: msg.MessageID,
		ChannelID: channelID,
		FileID:    msg.Document.FileID,
		FileName:  msg.Document.FileName,
		FileSize:  msg.Document.FileSize,
		SentAt:    time.Unix(msg.Date, 0).UTC(),
	}, nil
}

// FetchFile resolves the download path for a document and streams its bytes.
// The caller owns the returned reader.
func (c *Client) FetchFile(ctx context.Context, file File) (io.ReadCloser, error) {
	if file.FileID == "" {
		return nil, services.Wrap(services.ErrValidation, "telegram", "getFile", "file id is empty", nil)
	}
	params := url.Values{}
	params.Set("file_id", file.FileID)

	raw, err := c.call(ctx, "getFile", params)
	if err != nil {
		return nil, err
	}
	var info fileInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, services.Wrap(services.ErrTransient, "telegram", "getFile", "decode response", err)
	}
	if info.FilePath == "" {
		return nil, services.Wrap(services.ErrNotFound, "telegram", "getFile", "no file path for "+file.FileID, nil)
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	downloadURL := c.baseURL + "/file/bot" + c.token + "/" + info.FilePath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "telegram", "download", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "telegram", "download", "execute request", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		if throttled := throttleFromResponse(resp, "download"); throttled != nil {
			return nil, throttled
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, services.Wrap(services.ErrNotFound, "telegram", "download", "file gone: "+info.FilePath, nil)
		}
		return nil, services.Wrap(services.ErrTransient, "telegram", "download",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return resp.Body, nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "telegram", method, "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "telegram", method, "execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "telegram", method, "read response", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		if throttled := throttleFromResponse(resp, method); throttled != nil {
			return nil, throttled
		}
		return nil, services.Wrap(services.ErrTransient, "telegram", method,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), err)
	}

	if !envelope.OK {
		if envelope.ErrorCode == http.StatusTooManyRequests {
			wait := time.Duration(0)
			if envelope.Parameters != nil {
				wait = time.Duration(envelope.Parameters.RetryAfter) * time.Second
			}
			return nil, &services.ThrottledError{RetryAfter: wait, Operation: method}
		}
		switch envelope.ErrorCode {
		case http.StatusBadRequest:
			return nil, services.Wrap(services.ErrValidation, "telegram", method, envelope.Description, nil)
		case http.StatusNotFound:
			return nil, services.Wrap(services.ErrNotFound, "telegram", method, envelope.Description, nil)
		default:
			return nil, services.Wrap(services.ErrTransient, "telegram", method, envelope.Description, nil)
		}
	}
	return envelope.Result, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return services.Wrap(services.ErrTransient, "telegram", "rate limit", "wait canceled", err)
	}
	return nil
}

// throttleFromResponse builds a ThrottledError from HTTP 429 headers when the
// body was not a parseable envelope.
func throttleFromResponse(resp *http.Response, operation string) error {
	if resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	wait := time.Duration(0)
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			wait = time.Duration(seconds) * time.Second
		}
	}
	return &services.ThrottledError{RetryAfter: wait, Operation: operation}
}
