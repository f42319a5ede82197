// Package notifications delivers job events to an optional webhook.
//
// Progress updates and terminal events are posted as JSON to the URL
// configured in config.toml. When no webhook is configured the service
// degrades to a no-op so callers never need to check.
//
// Delivery is best effort: a failed post is returned to the caller, which
// logs it and moves on. Job outcomes never depend on notification delivery.
package notifications
