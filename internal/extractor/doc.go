// Package extractor recognizes named entities in page text.
//
// Two extractors are provided. The primary one runs a statistical NER
// model; the fallback scans for capitalized word runs. The Provider
// picks between them at call time: the model is initialized lazily, a
// successful initialization is cached for the process lifetime, and a
// failed one degrades that call to the heuristic and is retried on the
// next call.
//
// Entity identity is lexical. Surface text is NFC-normalized with
// whitespace collapsed, case preserved, and paired with the label.
// Results are ordered by descending count with ties broken by first
// occurrence, truncated to the caller's maximum.
package extractor
