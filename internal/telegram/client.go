// Package telegram is a minimal Bot API client covering the surface the bot
// needs: long-polled updates, plain and edited messages, file downloads, and
// multipart video uploads.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clipd/internal/logging"
)

// DefaultBaseURL is the hosted Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// APIError is a non-ok response from the Bot API.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// Client talks to one bot over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
}

// New constructs a Client for the given bot token.
func New(token, baseURL string, logger *slog.Logger) (*Client, error) {
	if token == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		// No overall timeout: getUpdates long polls and uploads can be slow.
		// Every call carries a context instead.
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		logger:     logging.WithComponent(logger, "telegram"),
	}, nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) fileURL(filePath string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// call posts a JSON body to a Bot API method and unmarshals result into out.
// out may be nil when the result does not matter.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	return decodeResponse(method, resp.Body, out)
}

func decodeResponse(method string, body io.Reader, out any) error {
	var envelope apiResponse
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("%s: %w", method, &APIError{Code: envelope.ErrorCode, Description: envelope.Description})
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetMe verifies the token and returns the bot's own user record.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	var user User
	if err := c.call(ctx, "getMe", struct{}{}, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// GetUpdates long polls for new updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, pollTimeout time.Duration) ([]Update, error) {
	params := map[string]any{
		"offset":          offset,
		"timeout":         int(pollTimeout.Seconds()),
		"allowed_updates": []string{"message"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends a plain text message and returns the new message ID.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	params := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// EditMessage replaces the text of a previously sent message. Editing to the
// same text is not an error.
func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	params := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	err := c.call(ctx, "editMessageText", params, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified") {
		return nil
	}
	return err
}

// DeleteMessage removes a previously sent message.
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	params := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	return c.call(ctx, "deleteMessage", params, nil)
}

func (c *Client) getFile(ctx context.Context, fileID string) (File, error) {
	params := map[string]any{"file_id": fileID}
	var file File
	if err := c.call(ctx, "getFile", params, &file); err != nil {
		return File{}, err
	}
	if file.FilePath == "" {
		return File{}, errors.New("telegram: getFile returned no file path")
	}
	return file, nil
}
