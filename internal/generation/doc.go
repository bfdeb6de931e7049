// Package generation provides the interface for interacting with external
// AI image-generation services. It abstracts the details of the provider
// API integration (Gemini), allowing the task queue to drive image
// generation without coupling to a specific external service.
package generation
