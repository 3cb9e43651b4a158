// Package engine implements the execution core of OneAgent: it resolves
// per-request configuration, talks to the configured model provider and runs
// the tool-calling loop. The package covers four concerns:
//
//  1. Configuration resolution – per-call overrides merged over the engine
//     defaults, with the provider client rebuilt only when transport-relevant
//     fields change
//  2. Turn processing – a streaming state machine that reassembles partial
//     tool calls by provider index and enforces chunk safety ceilings
//  3. Tool execution – sequential dispatch with error classification,
//     recovery suggestions and alternative-tool hints instead of hard aborts
//  4. Delivery – an ordered event stream (Stream) or a consolidated batch
//     result (Execute), plus per-instance telemetry and a health probe
//
// Execution model:
//   - Stream returns a channel of Events closed after a terminal event;
//     cancelling the context aborts outstanding provider and tool calls
//   - When a turn finishes with tool calls, results (including structured
//     failure payloads) are fed back to the model in one follow-up turn
//   - Provider failures before the first chunk are retried with linear
//     backoff; mid-stream failures surface immediately
//
// Provider transports and tool implementations live in their own packages;
// the engine only depends on their interfaces.
package engine
