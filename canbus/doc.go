// Package canbus provides the core CAN primitives for the simulation:
//
//   - A Frame type with validation helpers
//   - A fixed 13-byte wire encapsulation for tunneling frames over a
//     byte-oriented transport
//   - An in-memory loopback bus connecting simulated nodes
//   - A Mux for filtered fan-out of received frames
//   - A slog-based logging decorator for any Bus
//
// The package deliberately stops at classical CAN 2.0A/2.0B semantics:
// no arbitration, no physical-layer timing, no CAN FD.
package canbus
