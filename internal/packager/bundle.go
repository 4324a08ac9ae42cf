// Package packager bundles the artifacts of a finished production run into a
// single zip archive.
package packager

import (
	"bookforge/internal/book"
)

// Archive entry names.
const (
	ManifestText = "manifest.txt"
	ManifestJSON = "manifest.json"
	DocumentName = "book.pdf"
	RawDir       = "raw"
	PrintDir     = "print"
	LogsDir      = "logs"
)

// Bundle is everything a package contains. The packager only aggregates: it
// re-encodes composed rasters to PNG and never re-derives content.
type Bundle struct {
	Session *book.Session
	Result  *book.StitchedResult
	Spec    book.ProductSpec
	RunID   string
}
