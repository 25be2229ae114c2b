// Package prompts contains all LLM prompt templates used internally by
// Callisto.
//
// Keeping prompt text in one package makes it reviewable in isolation:
// wording changes never touch orchestration code, and orchestration
// changes never silently alter what the model is told.
package prompts
