// Package log provides structured logging helpers built on log/slog.
//
// The site configuration file can carry cookies and authorization headers
// for specific hosts, and those values flow through fetcher options. The
// SecureHandler wrapper redacts such attributes before they reach the
// underlying text or JSON handler, so enabling verbose logging never
// leaks request credentials.
package log
