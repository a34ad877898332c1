// Package config provides configuration management for KnowledgeMesh.
//
// Configuration comes from two sources: CLI flags populate the flat Config
// struct, and an optional YAML file (.knowledgemesh) supplies per-host
// request settings such as cookies and extra headers. The Config is
// validated once after parsing and then passed down by value reference;
// no package reads global state.
package config
