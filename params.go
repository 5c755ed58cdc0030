package apollo

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ContinuousClusteringOptions tunes a continuous clustering run. Unset fields are
// left out of the request; the service applies its own threshold and language defaults.
type ContinuousClusteringOptions struct {
	AbstractMaxChars *int
	Keywords         []string
	Threshold        *float64
	Language         Language
}

// Validate checks option ranges before anything is sent.
func (o ContinuousClusteringOptions) Validate() error {
	if o.AbstractMaxChars != nil && *o.AbstractMaxChars <= 0 {
		return fmt.Errorf("%w: abstractMaxChars must be positive, got %d", ErrInvalidArgument, *o.AbstractMaxChars)
	}
	if o.Threshold != nil && !validThreshold(*o.Threshold) {
		return fmt.Errorf("%w: threshold must be within [0,1], got %v", ErrInvalidArgument, *o.Threshold)
	}
	if o.Language != "" && !o.Language.valid() {
		return fmt.Errorf("%w: unsupported language %q", ErrInvalidArgument, o.Language)
	}
	return nil
}

// QueryParam is a single query parameter.
type QueryParam struct {
	Name  string
	Value string
}

// QueryParams is an ordered list of query parameters.
type QueryParams []QueryParam

// Get returns the value of the named parameter.
func (p QueryParams) Get(name string) (string, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}

// Encode renders the parameters as a query string, keeping their order.
func (p QueryParams) Encode() string {
	var sb strings.Builder
	for i, param := range p {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(param.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(param.Value))
	}
	return sb.String()
}

// EncodeOptions maps continuous clustering options to query parameters, in the
// order maxChars, keywords, threshold, language. Absent fields emit nothing.
func EncodeOptions(o ContinuousClusteringOptions) QueryParams {
	var params QueryParams

	if o.AbstractMaxChars != nil {
		params = append(params, QueryParam{Name: "maxChars", Value: strconv.Itoa(*o.AbstractMaxChars)})
	}
	if len(o.Keywords) > 0 {
		params = append(params, QueryParam{Name: "keywords", Value: strings.Join(o.Keywords, ",")})
	}
	if o.Threshold != nil {
		params = append(params, QueryParam{Name: "threshold", Value: formatFloat(*o.Threshold)})
	}
	if o.Language != "" {
		params = append(params, QueryParam{Name: "language", Value: string(o.Language)})
	}

	return params
}

// validThreshold reports whether v lies in [0,1]. NaN does not.
func validThreshold(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
