// Package sim emulates a small two-node CAN bus with a supervisory compute
// module, tunneled over the 13-byte encapsulation from package canbus.
//
// The moving parts:
//
//   - DeviceA: periodic status producer (operational value + uptime)
//   - DeviceB: periodic status producer that also accepts watchdog-reset
//     and control frames, and owns a watchdog timeout monitor
//   - ModuleC: fixed-cadence consumer recomputing a derived value from the
//     latest reported device values
//   - Pipeline: decodes inbound encapsulations, routes by identifier to
//     registered handlers, and keeps rolling traffic statistics
//   - Clock: a single positive multiplier applied to every
//     simulation-driven interval
//   - Simulation: the owner wiring everything to a loopback bus and
//     exposing the control surface (status snapshot, timing scale, freeze,
//     watchdog interval, control/reset injection)
//
// All simulation-driven intervals scale with the Clock; the wall-clock
// step functions inside DeviceA and ModuleC deliberately do not.
package sim
