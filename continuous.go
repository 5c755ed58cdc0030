package apollo

import "context"

const opContinuousClustering = "continuousClustering"

// ContinuousClustering merges newArticles into a previously computed clustering
// result. present may be empty for a first run. Identity checks and option checks
// run before anything is sent; a failing check issues no request.
func (c *Client) ContinuousClustering(
	ctx context.Context,
	newArticles []ArticleRef,
	present []ClusteringResultItem,
	opts ContinuousClusteringOptions,
) (*ContinuousClusteringResponse, error) {
	if err := ValidateIdentities(newArticles, present); err != nil {
		return nil, c.fail(ctx, opContinuousClustering, err)
	}
	if err := opts.Validate(); err != nil {
		return nil, c.fail(ctx, opContinuousClustering, err)
	}

	// result is always sent, even empty, so a first run is not mistaken for an omission.
	body := continuousClusteringRequest{
		NewArticles: newArticles,
		Result:      present,
	}
	if body.NewArticles == nil {
		body.NewArticles = []ArticleRef{}
	}
	if body.Result == nil {
		body.Result = []ClusteringResultItem{}
	}

	var resp ContinuousClusteringResponse
	if err := c.post(ctx, opContinuousClustering, "/combinedapi", EncodeOptions(opts), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
