package carousel

import (
	"fmt"
	"strings"
)

// DefaultFilename is used when the document carries no filename.
const DefaultFilename = "carousel.pdf"

// PDFFilename returns the document filename verbatim.
func PDFFilename(doc Document) string {
	if doc.Config.Filename == "" {
		return DefaultFilename
	}
	return doc.Config.Filename
}

// SlideFilename names the JPEG of slide index (0 based). The document
// filename is used as is.
func SlideFilename(filename string, index int) string {
	if filename == "" {
		filename = strings.TrimSuffix(DefaultFilename, ".pdf")
	}
	return fmt.Sprintf("%s-slide-%d.jpg", filename, index+1)
}

// SlideItemID returns the element id of slide index on the surface.
func SlideItemID(index int) string {
	return fmt.Sprintf("%s%d", SlideItemPrefix, index)
}
