package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/theblitlabs/tinyml-runner/internal/config"
	"github.com/theblitlabs/tinyml-runner/internal/models"
	"github.com/theblitlabs/tinyml-runner/internal/utils/errorutil"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

// Client talks to the training API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for cfg.ServerURL. A zero timeout waits as long as the
// trainer runs. token, when set, is sent as a bearer token.
func New(cfg config.ClientConfig, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.ServerURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Train(ctx context.Context, req *models.TrainingRequest) (*models.TrainingResult, error) {
	var result models.TrainingResult
	if err := c.do(ctx, http.MethodPost, "/train", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResponse, error) {
	var resp models.PredictResponse
	if err := c.do(ctx, http.MethodPost, "/predict", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SaveFeatures(ctx context.Context, features string) error {
	return c.do(ctx, http.MethodPost, "/save-features", &models.SaveFeaturesRequest{Features: features}, nil)
}

func (c *Client) ListJobs(ctx context.Context, limit, offset int) ([]*models.TrainingJob, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/jobs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var jobs []*models.TrainingJob
	if err := c.do(ctx, http.MethodGet, path, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *Client) GetJob(ctx context.Context, id string) (*models.TrainingJob, error) {
	var job models.TrainingJob
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	log := logger.WithComponent("client")
	target := c.baseURL + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", target).Msg("Request failed")
		return errorutil.Network(err, "HTTP %s failed for %s", method, target)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorutil.Network(err, "failed to read response from %s", target)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return errorutil.Parse(err, "failed to decode response from %s", target)
	}
	return nil
}

// statusError surfaces the server's own error message. Client errors keep the
// validation kind so callers can tell them apart from server failures.
func statusError(status int, body []byte) error {
	msg := ""
	var e models.ErrorResponse
	if json.Unmarshal(body, &e) == nil {
		msg = e.Error
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = fmt.Sprintf("unexpected status code: %d", status)
	}

	kind := errorutil.KindResponse
	if status >= 400 && status < 500 {
		kind = errorutil.KindValidation
	}
	return &errorutil.Error{Kind: kind, Message: msg}
}
