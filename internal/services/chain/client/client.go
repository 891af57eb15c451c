// Package client provides a typed HTTP client for the chain node API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/louisbranch/cairn/internal/platform/errors"
	"github.com/louisbranch/cairn/internal/platform/timeouts"
	"github.com/louisbranch/cairn/internal/services/chain/api"
)

// Client calls a chain node over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	grant      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithProducerGrant attaches a producer grant token to block submissions.
func WithProducerGrant(grant string) Option {
	return func(c *Client) { c.grant = strings.TrimSpace(grant) }
}

// New creates a client for the node at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeouts.HTTPRequest},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Head returns the chain tip.
func (c *Client) Head(ctx context.Context) (api.HeadResponse, error) {
	var out api.HeadResponse
	err := c.get(ctx, "/v1/chain/head", &out)
	return out, err
}

// Account returns the live view of one account.
func (c *Client) Account(ctx context.Context, id string) (api.AccountResponse, error) {
	var out api.AccountResponse
	err := c.get(ctx, "/v1/accounts/"+url.PathEscape(id), &out)
	return out, err
}

// AccountExtrinsics returns the journaled extrinsics submitted by id.
// A non-positive limit returns all of them.
func (c *Client) AccountExtrinsics(ctx context.Context, id string, limit int) ([]api.AccountExtrinsic, error) {
	path := "/v1/accounts/" + url.PathEscape(id) + "/extrinsics"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out api.AccountExtrinsicsResponse
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Extrinsics, nil
}

// Claim returns the live view of one content claim.
func (c *Client) Claim(ctx context.Context, content string) (api.ClaimResponse, error) {
	var out api.ClaimResponse
	err := c.get(ctx, "/v1/claims/"+url.PathEscape(content), &out)
	return out, err
}

// Block returns the journaled receipt for height.
func (c *Client) Block(ctx context.Context, height uint64) (api.BlockReceipt, error) {
	var out api.BlockReceipt
	err := c.get(ctx, "/v1/blocks/"+strconv.FormatUint(height, 10), &out)
	return out, err
}

// Blocks returns journaled receipts above afterHeight in ascending order.
// A non-positive limit returns all of them.
func (c *Client) Blocks(ctx context.Context, afterHeight uint64, limit int) ([]api.BlockReceipt, error) {
	query := url.Values{}
	if afterHeight > 0 {
		query.Set("after", strconv.FormatUint(afterHeight, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/blocks"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out api.BlocksResponse
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Blocks, nil
}

// SubmitBlock submits one block for execution. Rejected blocks return the
// receipt alongside the rejection error, mirroring the node response.
func (c *Client) SubmitBlock(ctx context.Context, submission api.SubmitBlockRequest) (api.SubmitBlockResponse, error) {
	header := http.Header{}
	header.Set("X-Request-Id", uuid.NewString())
	if c.grant != "" {
		header.Set("Authorization", "Bearer "+c.grant)
	}

	raw, status, err := c.do(ctx, http.MethodPost, "/v1/blocks", submission, header)
	if err != nil {
		return api.SubmitBlockResponse{}, err
	}

	var out api.SubmitBlockResponse
	if err := json.Unmarshal(raw, &out); err == nil && out.Receipt.Status != "" {
		if out.Error != nil {
			return out, apperrors.New(apperrors.Code(out.Error.Code), out.Error.Message)
		}
		if status == http.StatusOK {
			return out, nil
		}
	}
	return api.SubmitBlockResponse{}, apiError(raw, status)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	raw, status, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apiError(raw, status)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode chain node response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, path string, in any, header http.Header) ([]byte, int, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, 0, fmt.Errorf("encode chain node request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build chain node request: %w", err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("call chain node: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read chain node response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

// apiError rebuilds a domain error from an error response body so callers
// can match on codes the same way they do in-process.
func apiError(raw []byte, status int) error {
	var payload api.ErrorResponse
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error.Code != "" {
		return apperrors.New(apperrors.Code(payload.Error.Code), payload.Error.Message)
	}
	return fmt.Errorf("chain node returned status %d", status)
}
