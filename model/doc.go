// Package model defines the completion provider contract used by the
// orchestrator: a normalized Request/Response pair, the Provider interface
// implemented per vendor (see the openai and anthropic subpackages), a
// pricing table for cost accounting, and a Router that walks an ordered
// fallback provider list until one completes or all fail.
package model
