// Package config holds the explicit configuration mapping consumed by
// provider resolution and logging.
//
// Values are never read from the process environment implicitly. Callers load
// them from .env files with [Load], from any reader with [Parse], or build them
// directly, and hand them to a run through flow.WithProviderConfig.
package config
