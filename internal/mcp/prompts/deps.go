// Package prompts contains MCP prompt implementations for harreplay.
package prompts

// Config holds configuration needed by prompts.
type Config struct {
	ProxyURL    string
	Concurrency int
	MaxBodySize int
}
