package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"stockfolio/internal/client"

	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "http://localhost:8080"

func main() {
	baseURL := os.Getenv("E2E_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	c := client.New(baseURL, 10*time.Second, logger)
	defer c.Close()
	ctx := context.Background()

	// Wait for server to start
	waitForServer(ctx, c)

	// 1. Create holding
	name, price, qty, sector := "E2E Test Holding", "1234.50", int64(3), "Technology"
	symbol := fmt.Sprintf("E2E%d", time.Now().Unix()%100000)
	h, err := c.CreateHolding(ctx, client.HoldingInput{
		StockSymbol: &symbol, StockName: &name, PurchasePrice: &price, Quantity: &qty, Sector: &sector,
	})
	check("create holding", err)
	fmt.Printf("Created holding %d (%s)\n", h.ID, h.StockSymbol)

	// 2. Read it back
	got, err := c.GetHolding(ctx, h.ID)
	check("get holding", err)
	if got.StockSymbol != symbol {
		log.Fatalf("Expected symbol %s, got %s", symbol, got.StockSymbol)
	}

	// 3. Update quantity
	newQty := int64(5)
	updated, err := c.UpdateHolding(ctx, h.ID, client.HoldingInput{Quantity: &newQty})
	check("update holding", err)
	if updated.Quantity != newQty {
		log.Fatalf("Expected quantity %d, got %d", newQty, updated.Quantity)
	}

	// 4. Refresh quotes for the new symbol and all held symbols
	res, err := c.UpdateQuotes(ctx, []string{symbol})
	check("update quotes", err)
	fmt.Printf("Updated %d quotes (%d failed batches)\n", res.UpdatedCount, res.FailedBatches)

	res, err = c.AutoUpdateQuotes(ctx)
	check("auto-update quotes", err)
	fmt.Printf("Auto-updated %d quotes\n", res.UpdatedCount)

	// 5. Portfolio must contain the holding
	view, err := c.FetchPortfolio(ctx)
	check("get portfolio", err)
	found := false
	for _, row := range view.Holdings {
		if row.ID == h.ID {
			found = true
			fmt.Printf("Row: investment=%s present_value=%v\n", row.Investment, row.PresentValue)
		}
	}
	if !found {
		log.Fatalf("Holding %d missing from portfolio", h.ID)
	}
	fmt.Printf("Portfolio: %d holdings, %d sectors, invested %s\n",
		len(view.Holdings), len(view.Sectors), view.Summary.TotalInvestment)

	// 6. Delete and verify it is gone
	check("delete holding", c.DeleteHolding(ctx, h.ID))
	_, err = c.GetHolding(ctx, h.ID)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		log.Fatalf("Expected 404 after delete, got %v", err)
	}

	fmt.Println("ALL TESTS PASSED")
}

func waitForServer(ctx context.Context, c *client.Client) {
	deadline := time.Now().Add(10 * time.Second)
	for {
		err := c.Health(ctx)
		if err == nil {
			return
		}
		if time.Now().After(deadline) {
			log.Fatalf("Server not reachable: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func check(step string, err error) {
	if err != nil {
		log.Fatalf("%s failed: %v", step, err)
	}
	fmt.Printf("%s: ok\n", step)
}
