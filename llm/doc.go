// Package llm provides a config-driven chat completion client for the
// language-model-backed workflow steps.
//
// Providers plug in through the Dialect interface, the same way database/sql
// works with driver packages:
//
//	import (
//	    "github.com/kbukum/stepflow/llm"
//	    _ "github.com/kbukum/stepflow/llm/anthropic" // registers "anthropic"
//	)
//
//	adapter, err := llm.New(llm.Config{
//	    Provider: "anthropic",
//	    APIKey:   os.Getenv("ANTHROPIC_API_KEY"),
//	})
//
//	text, err := llm.Prompt(ctx, adapter, "Hello!", llm.WithTemperature(0))
//
// Anything that satisfies [Completer] can stand in for the adapter, which is
// how tests stub the model with [CompleterFunc]. [WithCache] layers a
// response cache over any Completer.
package llm
