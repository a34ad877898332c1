// Package database persists pipeline run results in SQLite.
//
// Stored runs power the history and diff commands: each row carries the
// full result as JSON plus enough columns to list and filter without
// deserializing. Crawl state itself is never persisted; the knowledge
// graph lives for the session and only its outcomes are recorded.
package database
