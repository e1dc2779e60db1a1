package ocr_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"docparse/internal/ocr"
	"docparse/pkg/models"
)

// Example demonstrates basic usage of the OCR backend.
func Example() {
	// Create context with timeout for recognition
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Build the engine named in DOCPARSE_OCR_ENGINE (default tesseract)
	engine, err := ocr.NewEngine(ctx, os.Getenv("DOCPARSE_OCR_ENGINE"))
	if err != nil {
		log.Fatalf("Failed to create OCR engine: %v", err)
	}
	extractor := ocr.NewExtractor(engine)

	// Load an image
	data, err := os.ReadFile("receipt.jpg")
	if err != nil {
		log.Fatalf("Failed to read image: %v", err)
	}
	doc := &models.Document{Name: "receipt.jpg", MediaType: "image/jpeg", Data: data}

	// Recognize
	result, err := extractor.Extract(ctx, doc, models.DefaultParseOptions())
	if err != nil {
		log.Fatalf("OCR failed: %v", err)
	}

	fmt.Printf("Recognized %d characters (score %.2f, source %s)\n",
		len(result.Text), result.Score, result.Source)
}

// ExampleNewEngine demonstrates selecting a cloud engine explicitly.
func ExampleNewEngine() {
	ctx := context.Background()

	// The vision engine reads GOOGLE_APPLICATION_CREDENTIALS or
	// GOOGLE_CREDENTIALS from the environment.
	engine, err := ocr.NewEngine(ctx, ocr.EngineVision)
	if err != nil {
		log.Fatalf("Failed to create OCR engine: %v", err)
	}
	defer engine.Close()

	data, err := os.ReadFile("scan.png")
	if err != nil {
		log.Fatalf("Failed to read image: %v", err)
	}

	rec, err := engine.Recognize(ctx, data, "image/png", "eng")
	if err != nil {
		log.Fatalf("Recognition failed: %v", err)
	}

	fmt.Printf("Confidence: %.2f%%\n", rec.Confidence*100)
	fmt.Printf("Text:\n%s\n", rec.Text)
}

// ExampleExtractor_Extract demonstrates the missing-capability behavior.
func ExampleExtractor_Extract() {
	// With no engine configured, image extraction reports MISSING_LIBRARY
	// instead of returning an empty result.
	extractor := ocr.NewExtractor(nil)

	doc := &models.Document{Name: "photo.png", MediaType: "image/png", Data: []byte{}}
	result, err := extractor.Extract(context.Background(), doc, models.DefaultParseOptions())
	if err != nil {
		fmt.Printf("code=%s actionable=%v\n", result.Error.Code, result.Error.Actionable)
	}
}
