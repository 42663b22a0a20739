package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/polluterofminds/parallax-server/internal/casegen"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
)

// PlayerHeader carries the address of the player a request acts for.
const PlayerHeader = "X-Player-Address"

// ErrUnexpectedStatus is returned when the server answers with a status the caller did not expect.
var ErrUnexpectedStatus = errors.NewSentinel("unexpected status code")

// Client talks to the parallax HTTP API.
type Client struct {
	client *http.Client
	url    string
}

func NewClient(url string) *Client {
	return &Client{
		client: &http.Client{Timeout: 30 * time.Second}, //nolint:mnd // case creation is slow
		url:    url,
	}
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	for {
		resp, err := c.Do(ctx, http.MethodGet, urlPath, nil, nil)
		if err == nil {
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Do sends a request with an optional JSON body and headers. The caller closes the response body.
func (c *Client) Do(
	ctx context.Context,
	method, urlPath string,
	body any,
	header http.Header,
) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, reader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	return resp, nil
}

// CaseFile fetches the public case file of the current case.
func (c *Client) CaseFile(ctx context.Context) (casegen.CaseFile, error) {
	var file casegen.CaseFile
	if err := c.doJSON(ctx, http.MethodGet, "/api/case-file", nil, nil, &file); err != nil {
		return casegen.CaseFile{}, err
	}
	return file, nil
}

// Solve submits guess on behalf of player.
func (c *Client) Solve(ctx context.Context, player string, guess models.StructuredSolution) (casegen.SolveResult, error) {
	var result casegen.SolveResult
	header := http.Header{PlayerHeader: []string{player}}
	if err := c.doJSON(ctx, http.MethodPost, "/api/solve", guess, header, &result); err != nil {
		return casegen.SolveResult{}, err
	}
	return result, nil
}

// NewCase asks the server to create a case now.
func (c *Client) NewCase(ctx context.Context, adminToken string) (models.Episode, error) {
	var episode models.Episode
	header := http.Header{"Authorization": []string{"Bearer " + adminToken}}
	if err := c.doJSON(ctx, http.MethodPost, "/api/new-case", nil, header, &episode); err != nil {
		return models.Episode{}, err
	}
	return episode, nil
}

func (c *Client) doJSON(
	ctx context.Context,
	method, urlPath string,
	body any,
	header http.Header,
	out any,
) error {
	resp, err := c.Do(ctx, method, urlPath, body, header)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return errors.Wrap(ErrUnexpectedStatus, "call api",
			slog.String("path", urlPath), slog.Int("status", resp.StatusCode))
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response", slog.String("path", urlPath))
	}
	return nil
}
