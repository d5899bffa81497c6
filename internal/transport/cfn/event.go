// Package cfn adapts CloudFormation custom-resource events to the reconciler
// and reports the outcome to the pre-signed response URL.
package cfn

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/cfn"

	"github.com/kailas-cloud/aossindex/internal/domain"
)

// ResourceProperties keys.
const (
	PropCollectionName     = "CollectionName"
	PropCollectionArn      = "CollectionArn"
	PropCollectionID       = "CollectionId"
	PropCollectionEndpoint = "CollectionEndpoint"
	PropIndexName          = "IndexName"
	PropDimension          = "Dimension"
	PropSpaceType          = "SpaceType"
	PropEngine             = "Engine"
)

// RequestFromEvent maps a custom-resource event onto a reconcile request.
// Schema properties left out of the template fall back to defaults.
func RequestFromEvent(ev cfn.Event, defaults domain.IndexSpec) (domain.ReconcileRequest, error) {
	props := ev.ResourceProperties

	spec := defaults
	if v := propString(props, PropDimension); v != "" {
		dim, err := strconv.Atoi(v)
		if err != nil {
			return domain.ReconcileRequest{}, fmt.Errorf("%s %q is not an integer: %w", PropDimension, v, domain.ErrInvalidRequest)
		}
		spec.Dimension = dim
	}
	if v := propString(props, PropSpaceType); v != "" {
		spec.SpaceType = v
	}
	if v := propString(props, PropEngine); v != "" {
		spec.Engine = v
	}

	return domain.ReconcileRequest{
		Kind: domain.RequestKind(ev.RequestType),
		Collection: domain.CollectionRef{
			ID:   propString(props, PropCollectionID),
			Name: propString(props, PropCollectionName),
			ARN:  propString(props, PropCollectionArn),
		},
		Endpoint:           propString(props, PropCollectionEndpoint),
		IndexName:          propString(props, PropIndexName),
		Spec:               spec,
		PhysicalResourceID: ev.PhysicalResourceID,
		CallbackURL:        ev.ResponseURL,
	}, nil
}

// propString reads a property as a trimmed string. CloudFormation passes
// scalars as strings, but direct invocations may carry JSON numbers or booleans.
func propString(props map[string]interface{}, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
