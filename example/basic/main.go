package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/regraph/regraph"
	"github.com/regraph/regraph/core/gap"
	"github.com/regraph/regraph/helper"
	"github.com/regraph/regraph/model"
)

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration
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

	// Set up the default embedder (all-MiniLM-L6-v2, 384 dimensions)
	if err := r.UseDefaultEmbedder(); err != nil {
		log.Fatalf("Failed to set up embedder: %v", err)
	}

	ctx := context.Background()

	// Store a few regulatory documents
	fmt.Println("=== Storing Documents ===")
	documents := []*model.DocumentRecord{
		{
			DocumentID:      "FAR-PART-1",
			Source:          "federal_register",
			Title:           "Federal Acquisition Regulation Part 1",
			DocumentType:    "rule",
			PublicationDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Metadata: model.DocumentMetadata{
				HTMLURL:       "https://example.gov/far-part-1",
				Abstract:      "Establishes the acquisition system for executive agencies.",
				Agencies:      []model.AgencyRef{{Name: "General Services Administration"}},
				RegulationIDs: []string{"1234-AB56"},
			},
		},
		{
			DocumentID:      "FAR-PART-2",
			Source:          "federal_register",
			Title:           "Federal Acquisition Regulation Part 2, Definitions",
			DocumentType:    "rule",
			PublicationDate: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
			Metadata: model.DocumentMetadata{
				HTMLURL:       "https://example.gov/far-part-2",
				Abstract:      "Defines words and terms used across acquisition regulations.",
				Agencies:      []model.AgencyRef{{Name: "General Services Administration"}},
				RegulationIDs: []string{"1234-AB57"},
			},
		},
	}

	for _, document := range documents {
		if err := r.StoreDocument(ctx, document); err != nil {
			log.Fatalf("Failed to store document %s: %v", document.DocumentID, err)
		}
		fmt.Printf("Stored '%s' (%s)\n", document.Title, document.DocumentID)
	}

	// Federated retrieval across the graph and semantic branches
	fmt.Println("\n=== Federated Retrieval ===")
	criteria := model.DefaultSearchCriteria("acquisition definitions")
	criteria.MaxResults = 5

	results, diagnostics, err := r.Retrieve(ctx, criteria)
	if err != nil {
		log.Fatalf("Retrieval failed: %v", err)
	}
	fmt.Printf("Found %d results (degraded: %v)\n", len(results), diagnostics.Degraded())
	for i, result := range results {
		fmt.Printf("%d. [%s] %s (score %.3f, %d relationships)\n",
			i+1, result.Source, result.ID, result.RelevanceScore, len(result.Relationships))
	}

	// Relationships of a single document
	fmt.Println("\n=== Relationships ===")
	relationships, err := r.GetRelationships("FAR-PART-1", nil)
	if err != nil {
		log.Fatalf("Relationship lookup failed: %v", err)
	}
	for _, relationship := range relationships {
		fmt.Printf("FAR-PART-1 -%s-> %s (%s)\n",
			relationship.Type, relationship.Node.NaturalKey, relationship.Node.Kind)
	}

	// Bounded traversal: both parts share an issuing agency, two hops apart
	fmt.Println("\n=== Related Documents ===")
	related, err := r.FindRelated(ctx, "FAR-PART-1", 2, nil)
	if err != nil {
		log.Fatalf("Traversal failed: %v", err)
	}
	for _, document := range related {
		fmt.Printf("%s at depth %d via %v\n",
			document.Document.NaturalKey, document.Depth, document.PathTypes)
	}

	// Coverage-scored retrieval
	fmt.Println("\n=== Coverage ===")
	_, report, _, err := r.RetrieveWithCoverage(ctx, criteria, []string{"definitions", "cybersecurity"}, gap.DefaultPolicy())
	if err != nil {
		log.Fatalf("Coverage retrieval failed: %v", err)
	}
	fmt.Printf("Completeness %.2f, consistency %.2f, %d gaps\n",
		report.Completeness, report.Consistency, len(report.Gaps))
	for _, g := range report.Gaps {
		fmt.Printf("Gap: %s (severity %.1f)\n", g.Description, g.Severity)
	}
}
