// Package gemini adapts Google's Gemini API to the generation.Generator
// interface, translating provider failures into typed errors the queue's
// retry classifier can act on.
package gemini
