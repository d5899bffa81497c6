// Package bedrock wraps the Bedrock knowledge base APIs and the S3 event feed.
package bedrock

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// describe renders an AWS API error as "code: message" when possible.
func describe(op string, err error, wrap error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s: %s: %w", op, apiErr.ErrorCode(), apiErr.ErrorMessage(), wrap)
	}
	return fmt.Errorf("%s: %v: %w", op, err, wrap)
}
