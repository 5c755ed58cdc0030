package apollo

import (
	"context"
	"fmt"
	"strings"
)

const opAutoabstract = "autoabstract"

// Autoabstract summarizes headline and text into a bounded set of extracted sentences.
func (c *Client) Autoabstract(ctx context.Context, headline, text string, opts AbstractOptions) (*AutoAbstractResponse, error) {
	if strings.TrimSpace(headline) == "" {
		return nil, c.fail(ctx, opAutoabstract, fmt.Errorf("%w: headline is empty", ErrInvalidArgument))
	}
	if strings.TrimSpace(text) == "" {
		return nil, c.fail(ctx, opAutoabstract, fmt.Errorf("%w: text is empty", ErrInvalidArgument))
	}

	req := newAutoAbstractRequest(opts)
	req.Headline = headline
	req.Text = text

	return c.autoabstract(ctx, req)
}

// AutoabstractFromURL summarizes the document at rawURL. The service fetches the
// document itself; reachability is not checked here.
func (c *Client) AutoabstractFromURL(ctx context.Context, rawURL string, opts AbstractOptions) (*AutoAbstractResponse, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, c.fail(ctx, opAutoabstract, fmt.Errorf("%w: url is empty", ErrInvalidArgument))
	}

	req := newAutoAbstractRequest(opts)
	req.URL = rawURL

	return c.autoabstract(ctx, req)
}

func (c *Client) autoabstract(ctx context.Context, req autoAbstractRequest) (*AutoAbstractResponse, error) {
	var resp AutoAbstractResponse
	if err := c.post(ctx, opAutoabstract, "/autoabstract", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// newAutoAbstractRequest applies the length control: a sentence bound replaces the
// character bound entirely.
func newAutoAbstractRequest(opts AbstractOptions) autoAbstractRequest {
	req := autoAbstractRequest{
		Keywords: strings.Join(opts.Keywords, ","),
		Debug:    opts.Debug,
	}

	if opts.MaxSentences > 0 {
		req.MaxSentences = opts.MaxSentences
	} else {
		req.MaxCharacters = opts.MaxCharacters
		if req.MaxCharacters <= 0 {
			req.MaxCharacters = DefaultMaxCharacters
		}
	}

	return req
}
