package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotJSON = errors.New("response is not JSON")

// Response is what the endpoint answered to one create call. Body holds the
// decoded JSON document.
type Response struct {
	StatusCode int
	Body       any
	Duration   time.Duration
}

// Print writes the status and body the way the smoke test reports them.
func (r *Response) Print(w io.Writer) error {
	if err := r.PrintStatus(w); err != nil {
		return err
	}
	return r.PrintBody(w)
}

func (r *Response) PrintStatus(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Status: %d\n", r.StatusCode)
	return err
}

func (r *Response) PrintBody(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Response: %v\n", r.Body)
	return err
}

// Client posts payloads to a preview create endpoint. It never retries.
type Client struct {
	url    string
	client *http.Client
}

// NewClient returns a client for url. A zero timeout means none.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Client) URL() string {
	return c.url
}

// Create sends payload as JSON and decodes the JSON answer. Any status code
// is returned as is; only transport failures and non-JSON bodies are errors.
// A non-JSON body still returns the Response, with a nil Body, next to
// ErrNotJSON.
func (c *Client) Create(ctx context.Context, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("could not encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", c.url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not post to %q: %w", c.url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response from %q: %w", c.url, err)
	}

	res := &Response{
		StatusCode: resp.StatusCode,
		Duration:   time.Since(start),
	}
	if err := json.Unmarshal(raw, &res.Body); err != nil {
		res.Body = nil
		return res, fmt.Errorf("%w (status %d): %w", ErrNotJSON, resp.StatusCode, err)
	}

	return res, nil
}
