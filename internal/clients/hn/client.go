package hn

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	BaseURL        = "https://news.ycombinator.com"
	requestTimeout = 10 * time.Second
)

// FetchError covers everything that can go wrong while getting the listing
// page: network failure, timeout, non-2xx status. Retrying is left to the
// caller's schedule.
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch jobs page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client downloads the Hacker News jobs listing. It spoofs a rotating
// browser identity since HN occasionally blocks uniform clients.
type Client struct {
	httpClient HTTPClient
}

func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: requestTimeout}}
}

func (c *Client) SetHTTPClient(client HTTPClient) {
	c.httpClient = client
}

// FetchListing returns the raw HTML of the jobs listing. Page 1 maps to the
// bare /jobs URL, later pages carry the p query parameter.
func (c *Client) FetchListing(ctx context.Context, page int) (string, error) {

	url := BaseURL + "/jobs"
	if page > 1 {
		url += "?p=" + strconv.Itoa(page)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{Page: page, Err: err}
	}
	setBrowserHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{Page: page, Err: err}
	}
	defer resp.Body.Close()

	// Accept-Encoding is set explicitly, so the transport skips its own
	// transparent decompression.
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", &FetchError{Page: page, Err: err}
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", &FetchError{Page: page, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{Page: page, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	return string(body), nil
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
