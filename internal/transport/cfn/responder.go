package cfn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// maxResponseBytes is the CloudFormation limit for a custom-resource response body.
const maxResponseBytes = 4096

const truncatedSuffix = "...(truncated)"

// Responder PUTs the completion document to the pre-signed response URL.
type Responder struct {
	client *retryablehttp.Client
}

// NewResponder creates a Responder retrying transport errors, 429 and 5xx.
func NewResponder(retries int, timeout time.Duration, log *zap.Logger) *Responder {
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.HTTPClient.Timeout = timeout
	c.CheckRetry = retryablehttp.ErrorPropagatedRetryPolicy
	c.Logger = leveledLogger{log.Sugar()}
	return &Responder{client: c}
}

// Send reports resp. The pre-signed URL is signed without a content type,
// so none is sent.
func (r *Responder) Send(ctx context.Context, url string, resp cfn.Response) error {
	body, err := marshalResponse(resp)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Del("Content-Type")

	res, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("send callback: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("send callback: unexpected status %d", res.StatusCode)
	}
	return nil
}

// marshalResponse encodes resp, shortening Reason so the document fits the size
// limit. Data is dropped when the document still does not fit.
func marshalResponse(resp cfn.Response) ([]byte, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal callback: %w", err)
	}

	// escaped characters grow when encoded; repeat until the document fits
	for len(body) > maxResponseBytes && len(resp.Reason) > len(truncatedSuffix) {
		over := len(body) - maxResponseBytes
		resp.Reason = truncate(resp.Reason, len(resp.Reason)-over-len(truncatedSuffix))
		if body, err = json.Marshal(resp); err != nil {
			return nil, fmt.Errorf("marshal callback: %w", err)
		}
	}
	if len(body) > maxResponseBytes && len(resp.Data) > 0 {
		resp.Data = nil
		if body, err = json.Marshal(resp); err != nil {
			return nil, fmt.Errorf("marshal callback: %w", err)
		}
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("callback document is %d bytes, limit %d", len(body), maxResponseBytes)
	}
	return body, nil
}

// truncate cuts s to at most n bytes on a rune boundary and marks the cut.
func truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + truncatedSuffix
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	l *zap.SugaredLogger
}

func (z leveledLogger) Error(msg string, kv ...interface{}) { z.l.Errorw(msg, kv...) }
func (z leveledLogger) Info(msg string, kv ...interface{})  { z.l.Infow(msg, kv...) }
func (z leveledLogger) Debug(msg string, kv ...interface{}) { z.l.Debugw(msg, kv...) }
func (z leveledLogger) Warn(msg string, kv ...interface{})  { z.l.Warnw(msg, kv...) }
