// Package domain contains the core business entities of the application:
// generation tasks and the artifacts the external provider produces for
// them. It is independent of any specific infrastructure or delivery
// mechanism.
package domain
