// Package queue implements the bounded-concurrency generation queue that
// sits between the HTTP layer and the external image-generation provider.
// It admits tasks in FIFO order up to a configured concurrency ceiling,
// races each generation call against a per-task timeout, classifies
// failures as retryable or fatal, and re-queues retryable failures after
// an exponential backoff delay with a longer floor for rate-limited
// errors. The queue is single-process and in-memory; the persistent store
// remains the system of record for user-visible task status.
package queue
