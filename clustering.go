package apollo

import (
	"context"
	"fmt"
	"strings"
)

const opClustering = "clustering"

// Clustering groups a fixed article set into clusters of related content.
func (c *Client) Clustering(ctx context.Context, articles []ClusteringArticle, opts ClusteringOptions) (*ClusteringResponse, error) {
	if len(articles) == 0 {
		return nil, c.fail(ctx, opClustering, fmt.Errorf("%w: no articles to cluster", ErrInvalidArgument))
	}
	for i, a := range articles {
		if err := checkClusteringArticle(i, a); err != nil {
			return nil, c.fail(ctx, opClustering, err)
		}
	}

	threshold := DefaultThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	if !validThreshold(threshold) {
		return nil, c.fail(ctx, opClustering, fmt.Errorf("%w: threshold must be within [0,1], got %v", ErrInvalidArgument, threshold))
	}

	language := opts.Language
	if language == "" {
		language = LanguageDE
	}
	if !language.valid() {
		return nil, c.fail(ctx, opClustering, fmt.Errorf("%w: unsupported language %q", ErrInvalidArgument, language))
	}

	query := QueryParams{
		{Name: "threshold", Value: formatFloat(threshold)},
		{Name: "language", Value: string(language)},
	}

	var resp ClusteringResponse
	if err := c.post(ctx, opClustering, "/clustering", query, articles, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func checkClusteringArticle(i int, a ClusteringArticle) error {
	switch {
	case strings.TrimSpace(a.Identifier) == "":
		return &MalformedInputError{Field: "articles", Index: i, Reason: "identifier is missing"}
	case strings.TrimSpace(a.Title) == "":
		return &MalformedInputError{Field: "articles", Index: i, Reason: "title is missing"}
	case strings.TrimSpace(a.Content) == "":
		return &MalformedInputError{Field: "articles", Index: i, Reason: "content is missing"}
	}
	return nil
}
