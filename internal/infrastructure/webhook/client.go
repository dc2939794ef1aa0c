package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/scentmatch/backend/internal/domain"
)

// Client pushes analysis outcomes to external automation webhooks (one URL
// for price updates, one for missing products). It implements domain.Notifier.
type Client struct {
	priceUpdatesURL string
	newProductsURL  string
	httpClient      *http.Client
}

// NewClient creates a webhook client. Empty URLs disable the corresponding
// notification.
func NewClient(priceUpdatesURL, newProductsURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		priceUpdatesURL: priceUpdatesURL,
		newProductsURL:  newProductsURL,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// payload is the envelope the automation platform expects
type payload struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Count     int         `json:"count"`
	Products  interface{} `json:"products"`
}

// priceUpdate is one flattened row for the price-updates webhook
type priceUpdate struct {
	Name       string  `json:"name"`
	OurPrice   float64 `json:"our_price"`
	CompName   string  `json:"comp_name"`
	CompPrice  float64 `json:"comp_price"`
	Diff       float64 `json:"diff"`
	MatchScore float64 `json:"match_score"`
	Decision   string  `json:"decision"`
	Brand      string  `json:"brand"`
	Competitor string  `json:"competitor"`
}

// missingProduct is one flattened row for the missing-products webhook
type missingProduct struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Brand      string  `json:"brand"`
	Competitor string  `json:"competitor"`
}

// SendPriceUpdates posts the given classified rows to the price-updates URL
func (c *Client) SendPriceUpdates(ctx context.Context, rows []domain.ClassifiedRow) error {
	if c.priceUpdatesURL == "" {
		return fmt.Errorf("price updates webhook not configured")
	}

	products := make([]priceUpdate, 0, len(rows))
	for _, row := range rows {
		products = append(products, priceUpdate{
			Name:       row.Product.Name,
			OurPrice:   row.Product.Price,
			CompName:   row.CompetitorName,
			CompPrice:  row.CompetitorPrice,
			Diff:       row.PriceDelta,
			MatchScore: row.MatchScore,
			Decision:   string(row.Decision),
			Brand:      row.Attributes.Brand,
			Competitor: row.Competitor,
		})
	}

	return c.post(ctx, c.priceUpdatesURL, payload{
		Type:      "price_updates",
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Count:     len(products),
		Products:  products,
	})
}

// SendMissingProducts posts competitor items absent from the merchant catalog
func (c *Client) SendMissingProducts(ctx context.Context, missing []domain.MissingRecord) error {
	if c.newProductsURL == "" {
		return fmt.Errorf("new products webhook not configured")
	}

	products := make([]missingProduct, 0, len(missing))
	for _, m := range missing {
		products = append(products, missingProduct{
			Name:       m.Product.Name,
			Price:      m.Product.Price,
			Brand:      m.Attributes.Brand,
			Competitor: m.Competitor,
		})
	}

	return c.post(ctx, c.newProductsURL, payload{
		Type:      "missing_products",
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Count:     len(products),
		Products:  products,
	})
}

func (c *Client) post(ctx context.Context, url string, body payload) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	log.Printf("[WEBHOOK] sent %s (%d products)", body.Type, body.Count)
	return nil
}
