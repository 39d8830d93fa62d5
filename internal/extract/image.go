package extract

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

// OCRRunner turns a prepared statement image into text. The production
// runner shells out to Tesseract; tests inject canned text.
type OCRRunner interface {
	Run(imagePath string) (string, error)
}

// TesseractRunner runs the tesseract binary. Requires tesseract-ocr
// with the eng and chi_sim language packs installed.
type TesseractRunner struct{}

// Run OCRs imagePath and returns the recognized text.
func (TesseractRunner) Run(imagePath string) (string, error) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		return "", fmt.Errorf("Run: tesseract not available: %w", err)
	}

	outBase := strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + "-ocr"
	// PSM 6 = assume a single uniform block of text, which suits the
	// tabular layout of statement photos.
	cmd := exec.Command("tesseract", imagePath, outBase,
		"-l", "eng+chi_sim", "--oem", "3", "--psm", "6")
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("Run: tesseract failed: %v (output: %s)", err, string(out))
	}

	data, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("Run: reading tesseract output: %w", err)
	}
	defer os.Remove(outBase + ".txt")
	return strings.TrimSpace(string(data)), nil
}

// ImageExtractor OCRs photographed or scanned statements. The image is
// preprocessed to improve recognition, OCR'd, and the resulting text
// goes through the same line parser as PDF text.
type ImageExtractor struct {
	ocr OCRRunner
	pdf *PDFExtractor
	log zerolog.Logger
}

// NewImageExtractor creates an image extractor using ocr for text
// recognition.
func NewImageExtractor(ocr OCRRunner, log zerolog.Logger) *ImageExtractor {
	return &ImageExtractor{ocr: ocr, pdf: NewPDFExtractor(log), log: log}
}

// Extract OCRs the image at path. defaultYear fills in yearless dates.
// The Result carries the full OCR text so the caller can identify the
// issuing bank.
func (e *ImageExtractor) Extract(path string, defaultYear int) (Result, error) {
	prepared, cleanup, err := prepareImage(path)
	if err != nil {
		return Result{}, fmt.Errorf("Extract: %s: %v: %w", path, err, ErrExtractionFailed)
	}
	defer cleanup()

	text, err := e.ocr.Run(prepared)
	if err != nil {
		return Result{}, fmt.Errorf("Extract: OCR on %s: %v: %w", path, err, ErrExtractionFailed)
	}
	if text == "" {
		return Result{}, fmt.Errorf("Extract: OCR produced no text for %s: %w", path, ErrExtractionFailed)
	}

	candidates := e.pdf.ParseStatementText(text, defaultYear)
	e.log.Info().Str("path", path).Int("candidates", len(candidates)).Msg("parsed image statement")
	return Result{Candidates: candidates, Text: text}, nil
}

// prepareImage grayscales, boosts contrast, sharpens, and binarizes
// the source image, writing the result to a temp file for the OCR
// binary. The cleanup func removes the temp file.
func prepareImage(path string) (string, func(), error) {
	src, err := imaging.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("prepareImage: opening %s: %w", path, err)
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.0)
	img = binarize(img, 128)

	tmp, err := os.CreateTemp("", "statement-ocr-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("prepareImage: temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := imaging.Save(img, tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", nil, fmt.Errorf("prepareImage: saving prepared image: %w", err)
	}
	return tmpPath, func() { os.Remove(tmpPath) }, nil
}

// binarize thresholds a grayscale image to pure black and white.
func binarize(src *image.NRGBA, threshold uint8) *image.NRGBA {
	bounds := src.Bounds()
	dst := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := src.NRGBAAt(x, y)
			if c.R < threshold {
				dst.SetNRGBA(x-bounds.Min.X, y-bounds.Min.Y, color.NRGBA{A: 255})
			}
		}
	}
	return dst
}
