// Package report renders pipeline results for people and tools.
//
// Three formats share one Writer interface: plain text for terminals,
// JSON for programmatic consumers, and Markdown for documentation. A
// MultiWriter fans one result out to several destinations, which is how
// the CLI writes to both stdout and a report file.
package report
