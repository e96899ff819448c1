package appraisal

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Client talks to the remote appraisal and negotiation service. Valuation,
// platform ranking and the phone-call negotiation all happen server-side; the
// client only submits requests and reads results.
type Client struct {
	httpClient *resty.Client
	baseURL    string
	token      string
}

type ClientOpts struct {
	BaseURL string
	// Token is an optional bearer credential. When empty, requests are sent
	// unauthenticated.
	Token string
}

func NewClient(opts ClientOpts) *Client {
	c := Client{
		baseURL: opts.BaseURL,
		token:   opts.Token,
	}
	c.httpClient = resty.New().
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json")

	return &c
}

func (c *Client) req(ctx context.Context, result any) *resty.Request {
	request := c.httpClient.
		NewRequest().
		SetContext(ctx)

	if c.token != "" {
		request.SetAuthToken(c.token)
	}
	if result != nil {
		request.SetResult(result)
	}

	return request
}

// Analyze submits the image as a multipart upload and returns the full
// analysis. Coordinates are optional; when present they are passed in the ll
// form field. Never returns a partial result.
func (c *Client) Analyze(ctx context.Context, filename string, image []byte, coords *Coordinates) (*AnalysisResult, error) {
	result := &AnalysisResult{}

	req := c.req(ctx, result).
		SetFileReader("file", filename, bytes.NewReader(image))
	if coords != nil {
		req.SetFormData(map[string]string{"ll": coords.ParamValue()})
	}

	res, err := req.Post("/api/analyze")
	if err != nil {
		return nil, &AnalysisError{Message: fmt.Sprintf("analysis request failed: %s", err)}
	}
	if res.IsError() {
		return nil, &AnalysisError{StatusCode: res.StatusCode(), Message: messageFromResponse(res)}
	}

	return result, nil
}

// Negotiate asks the service to start calling the stores from a prior
// analysis and returns the job handle for polling offers.
func (c *Client) Negotiate(ctx context.Context, analysisID string) (*NegotiationJob, error) {
	result := &NegotiationJob{}

	res, err := c.req(ctx, result).
		SetBody(map[string]string{"analysis_id": analysisID}).
		Post("/api/negotiate")
	if err != nil {
		return nil, &NegotiationError{Message: fmt.Sprintf("negotiation request failed: %s", err)}
	}
	if res.IsError() {
		return nil, &NegotiationError{StatusCode: res.StatusCode(), Message: messageFromResponse(res)}
	}

	return result, nil
}

// FetchOffers retrieves the current negotiation snapshot for a job. It is an
// idempotent read and safe to call repeatedly; each call is a single attempt
// with no retry or backoff.
func (c *Client) FetchOffers(ctx context.Context, jobID string) (*OffersSnapshot, error) {
	result := &OffersSnapshot{}

	res, err := c.req(ctx, result).
		SetQueryParam("job_id", jobID).
		Get("/api/offers")
	if err != nil {
		return nil, &OfferFetchError{Message: fmt.Sprintf("offer fetch failed: %s", err)}
	}
	if res.IsError() {
		return nil, &OfferFetchError{StatusCode: res.StatusCode(), Message: messageFromResponse(res)}
	}

	return result, nil
}
