package extract_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"docparse/internal/config"
	"docparse/internal/extract"
	"docparse/pkg/models"
)

// Example demonstrates the full extraction pipeline on a file from disk.
func Example() {
	// Create context with an upper bound for the whole pipeline
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Load configuration from docparse.yaml and the environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Wire the production backends (docconv, pdfcpu, OCR engine from config)
	svc, err := extract.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create extraction service: %v", err)
	}
	defer svc.Close()

	// Read the upload and parse it
	data, err := os.ReadFile("report.pdf")
	if err != nil {
		log.Fatalf("Failed to read file: %v", err)
	}

	doc := &models.Document{Name: "report.pdf", Data: data}
	result, err := svc.Parse(ctx, doc, cfg.GetParseOptions())
	if err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}

	fmt.Printf("Source: %s\n", result.Source)
	fmt.Printf("Score: %.2f\n", result.Score)
	fmt.Printf("Words: %d\n", result.WordCount())
}

// ExampleService_Parse demonstrates handling a structured extraction error.
func ExampleService_Parse() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	svc, err := extract.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create extraction service: %v", err)
	}
	defer svc.Close()

	doc := &models.Document{Name: "old.doc", Data: []byte("legacy content")}
	result, err := svc.Parse(ctx, doc, cfg.GetParseOptions())
	if err != nil {
		// The result still carries the structured error and any best-effort text
		fmt.Printf("Code: %s\n", result.Error.Code)
		if result.Error.Actionable {
			fmt.Printf("Suggestion: %s\n", result.Error.SuggestedAction)
		}
		return
	}

	fmt.Println(result.Text)
}
