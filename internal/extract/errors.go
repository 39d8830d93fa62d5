package extract

import "errors"

// Format-level extraction errors. These mean the file could not be
// minimally understood; the pipeline marks the statement unparsed and
// surfaces them to the caller. Row-level problems (a bad date or amount
// in one line) never escalate to these - bad rows are skipped.
var (
	// ErrUnsupportedFormat is returned for a source type the pipeline
	// has no extractor for.
	ErrUnsupportedFormat = errors.New("unsupported statement format")

	// ErrMissingRequiredColumns is returned by the CSV extractor when
	// neither auto-detection nor the caller-supplied mapping resolves
	// the date and amount columns.
	ErrMissingRequiredColumns = errors.New("required columns (date, amount) not found")

	// ErrExtractionFailed is returned when a file of a supported format
	// cannot be read or decoded at all.
	ErrExtractionFailed = errors.New("statement extraction failed")
)
