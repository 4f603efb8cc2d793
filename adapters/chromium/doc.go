// Package carouselchromium renders sanitized carousel markup with a shared
// headless Chromium instance.
//
// Rasterizer captures a bitmap of the markup at a device scale factor after
// fonts and images have settled. PrintEngine prints the same markup to PDF
// with a CSS page size matching the slide size.
package carouselchromium
