// Package suggest generates follow-up question suggestions for the
// associated page.
//
// The engine moves through None, CanGenerate, IsGenerating, and HasGenerated.
// Content arrival arms it; content loss disarms it and discards any
// questions. Generation runs asynchronously and drops its result if the
// status changed while it was in flight.
package suggest
