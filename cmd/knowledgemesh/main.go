// Package main provides the entry point for the KnowledgeMesh CLI.
//
// KnowledgeMesh crawls individual web pages, extracts named entities
// from their text, and grows an in-memory knowledge graph connecting
// pages, entities, and link targets.
//
// Usage:
//
//	knowledgemesh crawl <url> [<url>...]
//	knowledgemesh history --list-targets
//
// See --help for all available options.
package main

// main is the entry point for KnowledgeMesh.
func main() {
	Execute()
}
