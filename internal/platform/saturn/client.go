// Package saturn is the REST client for the Saturn Network order book API.
// It decodes the exchange's loosely typed JSON into domain.Order at the
// boundary and submits signed order, cancel and trade requests.
package saturn

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/saturn-network/market-maker-strategy/internal/crypto"
	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// EtherAddress is the pseudo-token the exchange uses for the chain's native
// currency.
const EtherAddress = "0x0000000000000000000000000000000000000000"

// Config describes which pair the client trades.
type Config struct {
	BaseURL    string // e.g. "https://ticker.saturn.network"
	Blockchain string // "ETC" or "ETH"
	Token      string // base token contract address
	Timeout    time.Duration
}

// Client talks to the exchange REST API for one pair.
type Client struct {
	cfg    Config
	http   *fasthttp.Client
	signer *crypto.Signer
}

// NewClient creates a Client. signer may be nil for read-only use.
func NewClient(cfg Config, signer *crypto.Signer) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			Name:                "mmbot",
			MaxIdleConnDuration: time.Minute,
		},
		signer: signer,
	}
}

// do sends req and returns a copy of the response body. The context
// deadline, when set, bounds the request; otherwise the client timeout
// does.
func (c *Client) do(ctx context.Context, req *fasthttp.Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	var err error
	if dl, ok := ctx.Deadline(); ok {
		err = c.http.DoDeadline(req, resp, dl)
	} else {
		err = c.http.DoTimeout(req, resp, c.cfg.Timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	body := append([]byte(nil), resp.Body()...)
	if err := checkHTTPStatus(resp.StatusCode(), body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(c.cfg.BaseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, req)
}

// postSigned posts body with the wallet signature headers.
func (c *Client) postSigned(ctx context.Context, path string, body []byte) ([]byte, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("%w: client has no signer", domain.ErrSigningFailed)
	}
	sig, err := c.signer.Sign(body)
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	req.SetRequestURI(c.cfg.BaseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-Address", c.signer.Address().Hex())
	req.Header.Set("X-Signature", sig)
	req.SetBody(body)
	return c.do(ctx, req)
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	msg := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}
