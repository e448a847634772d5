// Package ocr provides text recognition for scanned documents.
//
// The package separates two concerns: a Rasterizer renders PDF pages into
// images, and an Engine recognizes text in one image. The extraction router
// composes the two, which lets the local tesseract engine and a remote OCR
// API share the same rasterization path.
//
// CommandRasterizer and TesseractEngine shell out to poppler-utils and
// tesseract respectively, matching how these tools are commonly deployed.
// RemoteEngine trades local binaries for a hosted recognition API.
package ocr
