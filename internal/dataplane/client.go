// Package dataplane talks to the OpenSearch Serverless data-plane HTTP API.
// The API has no SDK; every request is signed with SigV4 for the "aoss" service.
package dataplane

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/kailas-cloud/aossindex/internal/domain"
)

const (
	// ContentSHA256Header carries the payload hash the signature is bound to.
	ContentSHA256Header = "X-Amz-Content-Sha256"
	maxResponseBytes    = 1 << 20
)

// emptyPayloadHash is hex(sha256("")).
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SignerConfig configures a SignedClient.
type SignerConfig struct {
	Region      string
	Service     string // "aoss"
	Credentials aws.CredentialsProvider
	HTTPClient  Doer
	UserAgent   string
	Now         func() time.Time
}

// SignedClient sends SigV4-signed requests over a shared, pooled HTTP client.
type SignedClient struct {
	region    string
	service   string
	creds     aws.CredentialsProvider
	signer    *v4.Signer
	http      Doer
	userAgent string
	now       func() time.Time
}

// NewSignedClient validates cfg. A nil credentials provider is a fatal configuration error.
func NewSignedClient(cfg SignerConfig) (*SignedClient, error) {
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("dataplane: no credentials provider: %w", domain.ErrMissingCredentials)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("dataplane: region is required: %w", domain.ErrInvalidRequest)
	}
	if cfg.Service == "" {
		cfg.Service = "aoss"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient(30 * time.Second)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SignedClient{
		region:    cfg.Region,
		service:   cfg.Service,
		creds:     cfg.Credentials,
		signer:    v4.NewSigner(),
		http:      cfg.HTTPClient,
		userAgent: cfg.UserAgent,
		now:       cfg.Now,
	}, nil
}

// NewHTTPClient returns a client with connection pooling tuned for repeated polling of one host.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConns = 16
	tr.MaxIdleConnsPerHost = 8
	tr.IdleConnTimeout = 90 * time.Second
	return &http.Client{Transport: tr, Timeout: timeout}
}

// PayloadHash returns hex(sha256(body)), the value of X-Amz-Content-Sha256.
func PayloadHash(body []byte) string {
	if len(body) == 0 {
		return emptyPayloadHash
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Send signs and executes one request. body may be nil.
func (c *SignedClient) Send(ctx context.Context, method, url string, body []byte, headers http.Header) Response {
	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return Response{Err: fmt.Errorf("build request: %w", err)}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	// The hash header must be present before signing so it is part of the signature.
	hash := PayloadHash(body)
	req.Header.Set(ContentSHA256Header, hash)

	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return Response{Err: fmt.Errorf("retrieve credentials: %v: %w", err, domain.ErrMissingCredentials)}
	}
	if err := c.signer.SignHTTP(ctx, creds, req, hash, c.service, c.region, c.now()); err != nil {
		return Response{Err: fmt.Errorf("sign request: %w", err)}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		// Status is known; a truncated body is still a valid HTTP answer.
		return Response{Status: resp.StatusCode, Body: data, Err: fmt.Errorf("read body: %w", err)}
	}
	return Response{Status: resp.StatusCode, Body: data}
}
