// Package llm defines the provider-neutral language model layer: role-based
// prompt messages, the immutable Prompt container, model descriptors and the
// Executor interface that provider adapters (llm/openai, llm/anthropic) and
// the in-memory MockExecutor implement.
//
// Prompts are value types updated copy-on-write; appending a message returns a
// new Prompt and never mutates the receiver. This keeps concurrent readers of
// a prompt safe without locking.
package llm
