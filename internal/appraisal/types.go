package appraisal

import (
	"fmt"
	"strconv"
)

// Job statuses returned by the negotiation service. Anything other than
// JobStatusDone means calls are still being made and offers may be partial.
const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusDone       = "done"
)

// Coordinates is a device location captured once per session and attached to
// the analyze request when available.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// ParamValue formats coordinates the way the analyze endpoint expects them in
// the ll form field, e.g. "@40.7009973,-73.994778".
func (c Coordinates) ParamValue() string {
	return "@" + strconv.FormatFloat(c.Latitude, 'f', -1, 64) +
		"," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

// PriceRange is the estimated resale value of the analyzed item.
type PriceRange struct {
	Low      float64 `json:"low"`
	Fair     float64 `json:"fair"`
	High     float64 `json:"high"`
	Currency string  `json:"currency"`
}

// Display renders the range for the user, e.g. "$200–$280".
func (p PriceRange) Display() string {
	symbol := p.Currency
	if p.Currency == "USD" || p.Currency == "" {
		symbol = "$"
	}
	return fmt.Sprintf("%s%s–%s%s", symbol, formatPrice(p.Low), symbol, formatPrice(p.High))
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Platform is one marketplace the item could be sold on.
type Platform struct {
	Name            string  `json:"name"`
	AvgPrice        float64 `json:"avg_price"`
	Demand          string  `json:"demand"` // "high" | "medium" | "low"
	TimeToSellDays  *int    `json:"time_to_sell_days,omitempty"`
	SellThroughRate string  `json:"sell_through_rate,omitempty"`
}

// LocalStore is a nearby store that might buy the item directly.
type LocalStore struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone"`
	Specialty string   `json:"specialty"`
	Rating    *float64 `json:"rating,omitempty"`
	Priority  *int     `json:"priority,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	ShopType  string   `json:"shop_type,omitempty"` // "pawn" | "specialty" | "buyer"
}

// NegotiationStrategy is the suggested haggling plan for store calls.
type NegotiationStrategy struct {
	OpeningPrice   float64 `json:"opening_price"`
	TargetPrice    float64 `json:"target_price"`
	WalkAwayPrice  float64 `json:"walk_away_price"`
	OpeningScript  string  `json:"opening_script"`
	CounterScript  string  `json:"counter_script"`
	AcceptScript   string  `json:"accept_script"`
	WalkAwayScript string  `json:"walk_away_script"`
}

// AnalysisResult is the full payload returned by POST /api/analyze. It is
// created once per successful call and never mutated; AnalysisID keys the
// subsequent negotiation request.
type AnalysisResult struct {
	AnalysisID          string               `json:"analysis_id"`
	ImageURL            string               `json:"image_url"`
	ItemName            string               `json:"item_name"`
	ItemDescription     string               `json:"item_description"`
	Condition           string               `json:"condition"`
	EstimatedPriceRange PriceRange           `json:"estimated_price_range"`
	MarketContext       string               `json:"market_context"`
	BestPlatform        string               `json:"best_platform"`
	Platforms           []Platform           `json:"platforms"`
	LocalStores         []LocalStore         `json:"local_stores"`
	NegotiationStrategy *NegotiationStrategy `json:"negotiation_strategy,omitempty"`
	ConditionTips       []string             `json:"condition_tips"`
	Confidence          float64              `json:"confidence"`
	ProcessingTimeMs    int64                `json:"processing_time_ms"`
}

// NegotiationJob is the handle returned by POST /api/negotiate, used as the
// sole key for polling offers.
type NegotiationJob struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// OfferResult is one store's response to a delegated negotiation call. The
// client only reads these; AgreedPrice and CallSummary are set only when the
// store accepted.
type OfferResult struct {
	ID             string   `json:"id"`
	StoreName      string   `json:"store_name"`
	StoreAddress   string   `json:"store_address"`
	StorePhone     string   `json:"store_phone"`
	StoreSpecialty string   `json:"store_specialty"`
	Accepted       bool     `json:"accepted"`
	AgreedPrice    *float64 `json:"agreed_price"`
	CallSummary    string   `json:"call_summary,omitempty"`
}

// OffersSnapshot is the current negotiation state from GET /api/offers.
// Re-fetched on demand; while not Done the offers may be empty or partial.
type OffersSnapshot struct {
	JobID    string        `json:"job_id"`
	Status   string        `json:"status"`
	ItemName string        `json:"item_name"`
	ImageURL string        `json:"image_url"`
	Offers   []OfferResult `json:"offers"`
}

// Done reports whether every store call has been resolved. Only then may the
// offers be partitioned into final accepted/declined sets.
func (s *OffersSnapshot) Done() bool {
	return s.Status == JobStatusDone
}

// PartitionOffers splits offers into accepted and declined sets, preserving
// the original relative order within each set.
func PartitionOffers(offers []OfferResult) (accepted, declined []OfferResult) {
	for _, o := range offers {
		if o.Accepted {
			accepted = append(accepted, o)
		} else {
			declined = append(declined, o)
		}
	}
	return accepted, declined
}
