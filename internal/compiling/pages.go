package compiling

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// CountPages returns the number of pages in a PDF held in memory
func CountPages(pdfBytes []byte) (int, error) {
	if len(pdfBytes) == 0 {
		return 0, fmt.Errorf("empty PDF")
	}
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return 0, fmt.Errorf("failed to read pdf: %w", err)
	}
	return reader.NumPage(), nil
}

// CountPDFPages counts the pages of a PDF file, falling back to pdfinfo
// when the file cannot be read in-process
func CountPDFPages(pdfPath string) (int, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", pdfPath, err)
	}
	if count, err := CountPages(data); err == nil {
		return count, nil
	}
	return countPagesWithPdfinfo(pdfPath)
}

// countPagesWithPdfinfo uses pdfinfo (poppler-utils) to count PDF pages
func countPagesWithPdfinfo(pdfPath string) (int, error) {
	output, err := exec.Command("pdfinfo", pdfPath).Output()
	if err != nil {
		return 0, fmt.Errorf("pdfinfo command failed: %w", err)
	}
	for _, line := range strings.Split(string(output), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 {
			if count, err := strconv.Atoi(parts[1]); err == nil {
				return count, nil
			}
		}
	}
	return 0, fmt.Errorf("could not parse page count from pdfinfo output")
}
