package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zonestor/zone_syncer/pkg/xerror"
)

// ErrNotFound maps the peer's 404 answers; bucket init tolerates it when a
// fresh bucket has no index log yet.
var ErrNotFound = errors.New("remote resource not found")

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Connection is one peer zone endpoint. All admin reads of the sync engine go
// through it.
type Connection struct {
	endpoint string
	client   *http.Client
}

func NewConnection(endpoint string, timeout time.Duration) *Connection {
	return &Connection{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Connection) Endpoint() string {
	return c.endpoint
}

func (c *Connection) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.endpoint + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return xerror.Wrapf(err, xerror.Remote, "new request %s failed", reqURL)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return xerror.Wrapf(err, xerror.Remote, "get %s failed", reqURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return xerror.Errorf(xerror.Remote, "get %s failed, status: %s, body: %s",
			reqURL, resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return xerror.Wrapf(err, xerror.Remote, "decode response of %s failed", reqURL)
	}
	return nil
}

// Get fetches a raw resource, used by the object transfer leaves.
func (c *Connection) Get(ctx context.Context, path string, params url.Values) ([]byte, http.Header, error) {
	reqURL := c.endpoint + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, nil, xerror.Wrapf(err, xerror.Remote, "new request %s failed", reqURL)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, xerror.Wrapf(err, xerror.Remote, "get %s failed", reqURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, xerror.Errorf(xerror.Remote, "get %s failed, status: %s", reqURL, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, xerror.Wrapf(err, xerror.Remote, "read body of %s failed", reqURL)
	}
	return body, resp.Header, nil
}

func shardParam(shardID int) string {
	return fmt.Sprintf("%d", shardID)
}
