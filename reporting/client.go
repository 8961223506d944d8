package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second
)

// ClientConfig configures the ReportPortal HTTP client.
type ClientConfig struct {
	// Endpoint is the base URL of the ReportPortal instance,
	// e.g. "https://reportportal.local:8080".
	Endpoint string
	// Project is the ReportPortal project new launches are created in.
	Project string
	// Token is the API token (the profile UUID in ReportPortal terms).
	Token string

	// MaxRetries bounds transport-level retries per call. Zero means the
	// default; retries apply to network errors and 5xx responses only.
	MaxRetries int
	HTTPClient *http.Client
	Log        zerolog.Logger
}

// Client implements Reporter against the ReportPortal v1 REST API. Calls are
// fully synchronous, so observed backend ordering equals call ordering.
type Client struct {
	endpoint   string
	project    string
	token      string
	maxRetries int
	httpClient *http.Client
	log        zerolog.Logger
}

var _ Reporter = (*Client)(nil)

// NewClient validates cfg and creates a client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("reporting endpoint is required")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, errors.Wrapf(err, "invalid reporting endpoint %q", cfg.Endpoint)
	}
	if cfg.Project == "" {
		return nil, errors.New("reporting project is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("reporting token is required")
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		project:    cfg.Project,
		token:      cfg.Token,
		maxRetries: maxRetries,
		httpClient: httpClient,
		log:        cfg.Log,
	}, nil
}

type startLaunchRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	StartTime   int64    `json:"start_time"`
	Mode        string   `json:"mode,omitempty"`
}

type finishLaunchRequest struct {
	EndTime int64  `json:"end_time"`
	Status  string `json:"status"`
}

type startItemRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	StartTime   int64    `json:"start_time"`
	LaunchID    string   `json:"launch_id"`
	Type        string   `json:"type"`
}

type finishItemRequest struct {
	EndTime int64  `json:"end_time"`
	Status  string `json:"status"`
}

type logRequest struct {
	ItemID  string   `json:"item_id"`
	Time    int64    `json:"time"`
	Message string   `json:"message"`
	Level   string   `json:"level"`
	File    *logFile `json:"file,omitempty"`
}

type logFile struct {
	Name string `json:"name"`
}

type idResponse struct {
	ID string `json:"id"`
}

func (c *Client) StartLaunch(ctx context.Context, launch LaunchStart) (string, error) {
	req := startLaunchRequest{
		Name:        launch.Name,
		Description: launch.Description,
		Tags:        launch.Tags,
		StartTime:   epochMillis(launch.StartTime),
	}
	var resp idResponse
	if err := c.doJSON(ctx, http.MethodPost, c.apiPath("launch"), req, &resp); err != nil {
		return "", NewTransportError("start_launch", err)
	}
	c.log.Debug().Str("launch_id", resp.ID).Str("name", launch.Name).Msg("launch started")
	return resp.ID, nil
}

func (c *Client) FinishLaunch(ctx context.Context, launchID string, finish LaunchFinish) error {
	req := finishLaunchRequest{
		EndTime: epochMillis(finish.EndTime),
		Status:  string(finish.Status),
	}
	path := c.apiPath("launch", launchID, "finish")
	if err := c.doJSON(ctx, http.MethodPut, path, req, nil); err != nil {
		return NewTransportError("finish_launch", err)
	}
	return nil
}

func (c *Client) StartItem(ctx context.Context, parentID string, item ItemStart) (string, error) {
	req := startItemRequest{
		Name:        item.Name,
		Description: item.Description,
		Tags:        item.Tags,
		StartTime:   epochMillis(item.StartTime),
		LaunchID:    item.LaunchID,
		Type:        item.Type,
	}
	path := c.apiPath("item")
	if parentID != "" {
		path = c.apiPath("item", parentID)
	}
	var resp idResponse
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return "", NewTransportError("start_item", err)
	}
	return resp.ID, nil
}

func (c *Client) FinishItem(ctx context.Context, itemID string, finish ItemFinish) error {
	req := finishItemRequest{
		EndTime: epochMillis(finish.EndTime),
		Status:  string(finish.Status),
	}
	if err := c.doJSON(ctx, http.MethodPut, c.apiPath("item", itemID), req, nil); err != nil {
		return NewTransportError("finish_item", err)
	}
	return nil
}

func (c *Client) Log(ctx context.Context, itemID string, entry LogEntry) error {
	req := logRequest{
		ItemID:  itemID,
		Time:    epochMillis(entry.Time),
		Message: entry.Message,
		Level:   string(entry.Level),
	}

	if entry.Attachment == nil {
		if err := c.doJSON(ctx, http.MethodPost, c.apiPath("log"), req, nil); err != nil {
			return NewTransportError("log", err)
		}
		return nil
	}

	req.File = &logFile{Name: entry.Attachment.Name}
	body, contentType, err := buildLogMultipart(req, entry)
	if err != nil {
		return NewTransportError("log", err)
	}
	if err := c.do(ctx, http.MethodPost, c.apiPath("log"), body, contentType, nil); err != nil {
		return NewTransportError("log", err)
	}
	return nil
}

// LaunchURL builds the UI link to a launch, suitable for printing at the end
// of a run.
func (c *Client) LaunchURL(launchID string) string {
	return fmt.Sprintf("%s/ui/#%s/launches/all/%s", c.endpoint, c.project, launchID)
}

func (c *Client) apiPath(parts ...string) string {
	return c.endpoint + "/api/v1/" + c.project + "/" + strings.Join(parts, "/")
}

func (c *Client) doJSON(ctx context.Context, method, u string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshaling request")
	}
	return c.do(ctx, method, u, payload, "application/json", out)
}

// do issues the request with bounded retries. Network errors and 5xx
// responses are retried with incremental backoff; 4xx responses are
// permanent. The payload is replayed from scratch on every attempt.
func (c *Client) do(ctx context.Context, method, u string, payload []byte, contentType string, out any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
		if err != nil {
			return errors.Wrap(err, "building request")
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("X-Request-Id", uuid.New().String())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Str("url", u).Int("attempt", i+1).Msg("backend request failed, trying again")
			sleepContext(ctx, calcBackoff(i))
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			sleepContext(ctx, calcBackoff(i))
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("backend returned %s: %s", resp.Status, truncateBody(respBody))
			c.log.Warn().Str("status", resp.Status).Str("url", u).Int("attempt", i+1).Msg("backend error, trying again")
			sleepContext(ctx, calcBackoff(i))
			continue
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("backend rejected request with %s: %s", resp.Status, truncateBody(respBody))
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return errors.Wrap(err, "decoding response")
			}
		}
		return nil
	}
	return errors.Wrap(lastErr, "permanent error calling backend")
}

func buildLogMultipart(req logRequest, entry LogEntry) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	jsonHeader := textproto.MIMEHeader{}
	jsonHeader.Set("Content-Disposition", `form-data; name="json_request_part"`)
	jsonHeader.Set("Content-Type", "application/json")
	jsonPart, err := w.CreatePart(jsonHeader)
	if err != nil {
		return nil, "", err
	}
	if err := json.NewEncoder(jsonPart).Encode([]logRequest{req}); err != nil {
		return nil, "", err
	}

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, entry.Attachment.Name))
	fileHeader.Set("Content-Type", entry.Attachment.MIME)
	filePart, err := w.CreatePart(fileHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := filePart.Write(entry.Attachment.Data); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func epochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func calcBackoff(i int) time.Duration {
	jitter := float64(rand.Int63n(250))
	ms := math.Min(math.Pow(2, float64(i))*1000+jitter, 3000)
	return time.Duration(ms) * time.Millisecond
}

func sleepContext(ctx context.Context, duration time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(duration):
	}
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
