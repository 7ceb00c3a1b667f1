package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soltoura/booking-api/internal/domain"
)

// AvailabilityAPI is the slice of the availability service the handlers use.
type AvailabilityAPI interface {
	GetAvailabilities(ctx context.Context, productID string, from, to time.Time) ([]domain.AvailabilitySnapshot, error)
	PushAvailability(ctx context.Context, productID, date string, vacancies int) error
}

type availabilityEntry struct {
	DateTime               string                                   `json:"dateTime"`
	Vacancies              int                                      `json:"vacancies"`
	CutoffSeconds          int                                      `json:"cutoffSeconds"`
	Currency               string                                   `json:"currency"`
	PricesByCategory       map[domain.PriceCategory]int64           `json:"pricesByCategory,omitempty"`
	TieredPricesByCategory map[domain.PriceCategory][]priceTierBody `json:"tieredPricesByCategory,omitempty"`
	OpeningTimes           []openingTimesBody                       `json:"openingTimes,omitempty"`
}

type priceTierBody struct {
	MinQuantity int   `json:"minQuantity"`
	MaxQuantity int   `json:"maxQuantity,omitempty"`
	Price       int64 `json:"price"`
}

type openingTimesBody struct {
	FromTime string `json:"fromTime"`
	ToTime   string `json:"toTime"`
}

// HandleGetAvailability serves GET /availability.
func HandleGetAvailability(svc AvailabilityAPI) echo.HandlerFunc {
	return func(c echo.Context) error {
		productID := c.QueryParam("productId")
		if productID == "" {
			return badRequest(c, "productId is required")
		}
		from, err := parseDateTime(c.QueryParam("fromDateTime"))
		if err != nil {
			return badRequest(c, "fromDateTime must be an ISO-8601 timestamp")
		}
		to, err := parseDateTime(c.QueryParam("toDateTime"))
		if err != nil {
			return badRequest(c, "toDateTime must be an ISO-8601 timestamp")
		}
		if to.Before(from) {
			return badRequest(c, "toDateTime must not precede fromDateTime")
		}

		snapshots, err := svc.GetAvailabilities(c.Request().Context(), productID, from, to)
		if err != nil {
			return respondError(c, err)
		}

		entries := make([]availabilityEntry, 0, len(snapshots))
		for _, s := range snapshots {
			entries = append(entries, toAvailabilityEntry(s))
		}
		return c.JSON(http.StatusOK, dataResponse{Data: map[string]any{
			"availabilities": entries,
		}})
	}
}

type notifyRequest struct {
	ProductID string `json:"productId"`
	Date      string `json:"date"`
	Vacancies *int   `json:"vacancies"`
}

// HandleAvailabilityNotify serves POST /availability/notify, the
// supplier-pushed vacancy override.
func HandleAvailabilityNotify(svc AvailabilityAPI) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req notifyRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.ProductID == "" {
			return badRequest(c, "productId is required")
		}
		if req.Vacancies == nil {
			return badRequest(c, "vacancies is required")
		}

		if err := svc.PushAvailability(c.Request().Context(), req.ProductID, req.Date, *req.Vacancies); err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusAccepted, dataResponse{Data: map[string]string{
			"message": "availability update accepted",
		}})
	}
}

func toAvailabilityEntry(s domain.AvailabilitySnapshot) availabilityEntry {
	entry := availabilityEntry{
		DateTime:         s.Date.Format(time.RFC3339),
		Vacancies:        s.Vacancies,
		CutoffSeconds:    s.CutoffSeconds,
		Currency:         s.Currency,
		PricesByCategory: s.Pricing.ByCategory,
	}
	if len(s.Pricing.TieredByCategory) > 0 {
		entry.TieredPricesByCategory = make(map[domain.PriceCategory][]priceTierBody, len(s.Pricing.TieredByCategory))
		for cat, tiers := range s.Pricing.TieredByCategory {
			body := make([]priceTierBody, 0, len(tiers))
			for _, t := range tiers {
				body = append(body, priceTierBody{MinQuantity: t.MinQuantity, MaxQuantity: t.MaxQuantity, Price: t.Price})
			}
			entry.TieredPricesByCategory[cat] = body
		}
	}
	if s.OpeningTimes != nil {
		entry.OpeningTimes = []openingTimesBody{{FromTime: s.OpeningTimes.From, ToTime: s.OpeningTimes.To}}
	}
	return entry
}

func parseDateTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
