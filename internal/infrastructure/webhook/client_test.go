package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scentmatch/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPriceUpdates(t *testing.T) {
	var received payload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)

	rows := []domain.ClassifiedRow{
		{
			Product:         domain.ProductRecord{Name: "dior sauvage edp 100 ml", Price: 450},
			Attributes:      domain.Attributes{Brand: "Dior"},
			CompetitorName:  "sauvage edp 100 ml",
			CompetitorPrice: 430,
			Competitor:      "shop-a",
			PriceDelta:      20,
			MatchScore:      92.5,
			Decision:        domain.DecisionPriceHigher,
		},
	}

	err := client.SendPriceUpdates(context.Background(), rows)

	require.NoError(t, err)
	assert.Equal(t, "price_updates", received.Type)
	assert.Equal(t, 1, received.Count)
	assert.NotEmpty(t, received.Timestamp)

	products, ok := received.Products.([]interface{})
	require.True(t, ok)
	require.Len(t, products, 1)
	first := products[0].(map[string]interface{})
	assert.Equal(t, "dior sauvage edp 100 ml", first["name"])
	assert.Equal(t, 450.0, first["our_price"])
	assert.Equal(t, 430.0, first["comp_price"])
	assert.Equal(t, "price_higher", first["decision"])
	assert.Equal(t, "Dior", first["brand"])
}

func TestSendMissingProducts(t *testing.T) {
	var received payload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient("", server.URL, 5*time.Second)

	missing := []domain.MissingRecord{
		{
			Product:    domain.ProductRecord{Name: "acqua di gio edt 100 ml", Price: 320},
			Attributes: domain.Attributes{Brand: "Armani"},
			Competitor: "shop-b",
		},
	}

	err := client.SendMissingProducts(context.Background(), missing)

	require.NoError(t, err)
	assert.Equal(t, "missing_products", received.Type)
	assert.Equal(t, 1, received.Count)
}

func TestSend_UnconfiguredURL(t *testing.T) {
	client := NewClient("", "", 5*time.Second)

	err := client.SendPriceUpdates(context.Background(), nil)
	assert.Error(t, err)

	err = client.SendMissingProducts(context.Background(), nil)
	assert.Error(t, err)
}

func TestSend_Non200Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)

	err := client.SendPriceUpdates(context.Background(), []domain.ClassifiedRow{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestSend_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1 * time.Second)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.SendPriceUpdates(ctx, []domain.ClassifiedRow{})
	assert.Error(t, err)
}
