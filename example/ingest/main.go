package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/regraph/regraph"
	"github.com/regraph/regraph/helper"
	"github.com/regraph/regraph/ingestion"
	"github.com/regraph/regraph/ingestion/federalregister"
)

// Fetches the last week of Federal Register rules into a local store.
func main() {
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "regraph_test",
		Username: "regraph",
		Password: "regraph",
		Schema:   "public",
	}

	r, err := regraph.New(dbConfig, 384)
	if err != nil {
		log.Fatalf("Failed to create regraph: %v", err)
	}
	defer r.Close()

	if err := r.UseDefaultEmbedder(); err != nil {
		log.Fatalf("Failed to set up embedder: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ingestor := federalregister.NewIngestor(federalregister.NewClient(logger), logger)
	pipeline := ingestion.NewPipeline(r, logger)

	window := ingestion.FetchWindow{
		StartDate:    time.Now().UTC().AddDate(0, 0, -7),
		EndDate:      time.Now().UTC(),
		DocumentType: "RULE",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	report, err := pipeline.Run(ctx, ingestor, window)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	fmt.Printf("Fetched %d, stored %d, skipped %d documents from %s\n",
		report.Fetched, report.Stored, report.Skipped, report.Source)
	for _, documentError := range report.Errors {
		fmt.Printf("Error: %v\n", documentError)
	}

	documents, err := r.ListDocuments(nil, 10, 0)
	if err != nil {
		log.Fatalf("Listing failed: %v", err)
	}
	for _, document := range documents {
		fmt.Printf("%s %s: %s\n",
			document.PublicationDate.Format("2006-01-02"), document.DocumentID, document.Title)
	}
}
