// Package repair implements detection and rewriting of source files corrupted
// by split keywords interleaved with an access-modifier fragment.
//
// It exposes CommandBuilder for wiring the source-repair Cobra command,
// Service for driving the repair pass programmatically, and RuleSet plus
// Engine abstractions for the ordered pattern rewrites themselves.
package repair
