// Command importer repopulates the subreddit catalog. It runs as a standalone
// batch job independent of the API server: either a full reimport from the
// upstream catalog API, or a one-off seed from a CSV export.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/subfinder/api/internal/application/catalog"
	"github.com/subfinder/api/internal/config"
	"github.com/subfinder/api/internal/infrastructure/dynamo"
)

func main() {
	csvPath := flag.String("csv", "", "seed the catalog from this CSV file instead of the upstream API")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	repo := dynamo.NewSubredditRepo(dynamoClient, cfg.DynamoTables.Subreddits)
	imp := catalog.NewImporter(repo, &http.Client{Timeout: 30 * time.Second}, cfg.CatalogURL)

	ctx := context.Background()
	var err error
	if *csvPath != "" {
		err = imp.ImportCSV(ctx, *csvPath)
	} else {
		err = imp.Run(ctx)
	}
	if err != nil {
		log.Fatalf("catalog import failed: %v", err)
	}
}
