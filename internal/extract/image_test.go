package extract

import (
	"errors"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/shopspring/decimal"

	"github.com/creditsphere/creditsphere/internal/logger"
)

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) Run(string) (string, error) { return f.text, f.err }

func writeTempImage(t *testing.T) string {
	t.Helper()
	img := imaging.New(40, 40, color.White)
	for x := 10; x < 30; x++ {
		img.SetNRGBA(x, 20, color.NRGBA{A: 255})
	}
	path := filepath.Join(t.TempDir(), "statement.png")
	if err := imaging.Save(img, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImageExtract(t *testing.T) {
	ocrText := "CIBC Account Statement\n" +
		"Jan 12  TRANSFER TO SAVINGS  250.00  1040.50\n"

	e := NewImageExtractor(fakeOCR{text: ocrText}, logger.Nop())
	result, err := e.Extract(writeTempImage(t), 2024)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(result.Candidates))
	}
	if !result.Candidates[0].Amount.Equal(decimal.RequireFromString("-250")) {
		t.Errorf("amount = %s, want -250", result.Candidates[0].Amount)
	}
	if result.Text != ocrText {
		t.Error("Result.Text must carry the full OCR text for bank identification")
	}
}

func TestImageExtractOCRFailure(t *testing.T) {
	e := NewImageExtractor(fakeOCR{err: errors.New("tesseract exploded")}, logger.Nop())
	_, err := e.Extract(writeTempImage(t), 2024)
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("err = %v, want ErrExtractionFailed", err)
	}
}

func TestImageExtractEmptyOCRText(t *testing.T) {
	e := NewImageExtractor(fakeOCR{text: ""}, logger.Nop())
	_, err := e.Extract(writeTempImage(t), 2024)
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("err = %v, want ErrExtractionFailed", err)
	}
}

func TestBinarize(t *testing.T) {
	src := imaging.New(2, 1, color.White)
	src.SetNRGBA(0, 0, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 200, B: 200, A: 255})

	out := binarize(src, 128)
	if c := out.NRGBAAt(0, 0); c.R != 0 {
		t.Errorf("dark pixel stayed light: %v", c)
	}
	if c := out.NRGBAAt(1, 0); c.R != 255 {
		t.Errorf("light pixel went dark: %v", c)
	}
}

func TestPrepareImageMissingFile(t *testing.T) {
	_, _, err := prepareImage(filepath.Join(t.TempDir(), "nope.png"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
