package appraisal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// AnalysisError is returned when POST /api/analyze fails, either with a
// non-2xx status or a transport error. Message is display-ready.
type AnalysisError struct {
	StatusCode int
	Message    string
}

func (e *AnalysisError) Error() string { return e.Message }

// NegotiationError is returned when POST /api/negotiate fails.
type NegotiationError struct {
	StatusCode int
	Message    string
}

func (e *NegotiationError) Error() string { return e.Message }

// OfferFetchError is returned when GET /api/offers fails.
type OfferFetchError struct {
	StatusCode int
	Message    string
}

func (e *OfferFetchError) Error() string { return e.Message }

// messageFromResponse extracts a user-presentable error message from a failed
// response. The service wraps errors as {"detail": "..."}; plain text bodies
// are used as-is.
func messageFromResponse(res *resty.Response) string {
	body := strings.TrimSpace(string(res.Body()))
	if body != "" {
		var detail struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal([]byte(body), &detail); err == nil && detail.Detail != "" {
			return detail.Detail
		}
		return body
	}
	return fmt.Sprintf("request failed: %s", http.StatusText(res.StatusCode()))
}
