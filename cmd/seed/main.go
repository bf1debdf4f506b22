package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"stockfolio/internal/app"
	"stockfolio/internal/config"
	"stockfolio/internal/database"
	"stockfolio/internal/handlers"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	csvPath := flag.String("csv", "", "import holdings from this CSV file instead of the demo portfolio")
	refresh := flag.Bool("refresh", true, "fetch quotes for every held symbol afterwards")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		logrus.Fatal("seeding the in-memory store has no lasting effect; set DB_DRIVER to postgres or sqlite")
	}
	cfg.Database.SeedDemo = false
	logger := config.NewLogger(cfg.Log)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer a.Close()

	if *csvPath == "" {
		seeded, err := database.SeedDemo(ctx, a.Store)
		if err != nil {
			logger.Fatalf("seed failed: %v", err)
		}
		if !seeded {
			fmt.Println("Store already has holdings, demo portfolio not added")
		} else {
			fmt.Printf("Seeded %d demo holdings\n", len(database.DemoHoldings()))
		}
	} else {
		f, err := os.Open(*csvPath)
		if err != nil {
			logger.Fatalf("open csv: %v", err)
		}
		rows, skipped, err := handlers.ParseHoldingsCSV(f)
		f.Close()
		if err != nil {
			logger.Fatalf("read csv: %v", err)
		}
		if len(rows) == 0 {
			logger.Fatal("no valid holdings found in the file")
		}
		created, err := a.Store.CreateHoldings(ctx, rows)
		if err != nil {
			logger.Fatalf("import failed, nothing written: %v", err)
		}
		fmt.Printf("Imported %d holdings, skipped %d rows\n", len(created), skipped)
	}

	if *refresh {
		res, err := a.Quotes.RefreshHeld(ctx)
		if err != nil {
			logger.Fatalf("quote refresh failed: %v", err)
		}
		fmt.Printf("Refreshed %d quotes (%d failed batches)\n", res.UpdatedCount, res.FailedBatches)
	}
	fmt.Println("Done.")
}
