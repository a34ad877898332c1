// Package model defines the data structures shared across the pipeline:
// fetch results, extracted entities, pipeline stages, and run results.
//
// The package contains no behavior beyond small accessors so that every
// other internal package can depend on it without import cycles.
package model
