package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docparse/internal/extract"
	"docparse/internal/logger"
)

var detectCmd = &cobra.Command{
	Use:   "detect [file]",
	Short: "Show which format the sniffer assigns to a file",
	Long: `Sniff a file the same way the parsing pipeline does and print the
detected format together with the backend that would handle it.

Detection combines the declared media type, the file extension and the
leading magic bytes; only the head of the file is read.`,
	Example: `  # What is this upload, really?
  docparse detect download.bin

  # Declared media type wins over magic bytes, same as in the pipeline
  docparse detect --media-type text/plain notes.dat`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

// sniffHeadBytes is how much of the file detection reads. All recognized
// magic bytes sit in the first dozen bytes.
const sniffHeadBytes = 512

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().String("media-type", "", "Declared media type, as an upload would carry it")
}

func runDetect(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("detect")

	filePath := args[0]
	mediaType, _ := cmd.Flags().GetString("media-type")

	head, err := readFileHead(filePath)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", filePath).
			Msg("Failed to read file head")
		return fmt.Errorf("failed to read file: %w", err)
	}

	format := extract.Sniff(filepath.Base(filePath), mediaType, head)

	log.Debug().
		Str("file", filePath).
		Str("mediaType", mediaType).
		Str("format", string(format)).
		Msg("Sniffed file format")

	fmt.Printf("File:    %s\n", filepath.Base(filePath))
	if mediaType != "" {
		fmt.Printf("Media:   %s\n", mediaType)
	}
	fmt.Printf("Format:  %s\n", format)
	fmt.Printf("Route:   %s\n", describeRoute(format))

	return nil
}

// readFileHead reads up to sniffHeadBytes from the start of the file.
func readFileHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, sniffHeadBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return head[:n], nil
}

// describeRoute explains what the pipeline would do with the format.
func describeRoute(format extract.Format) string {
	switch format {
	case extract.FormatWord:
		return "Word backend (docconv, direct ZIP fallback)"
	case extract.FormatPDF:
		return "PDF backend (text layer walk, OCR fallback for scans)"
	case extract.FormatText:
		return "text backend (read verbatim and scored)"
	case extract.FormatImage:
		return "straight to OCR"
	case extract.FormatLegacy:
		return "rejected: legacy .doc format, re-save as .docx"
	default:
		return "rejected: no backend can handle this file"
	}
}
