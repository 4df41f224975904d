// Package agents provides core logic for LLM agents: agent construction,
// tool integration, callback handling, and the execution loop that drives a
// reasoning model through tool-invocation rounds until a final answer.
package agents
