// Package domain contains the core domain entities and value objects for
// patchwatch.
//
// This package represents the innermost layer of the Clean Architecture. It
// has no dependencies on infrastructure concerns (HTTP, websockets, logging)
// and contains only pure business logic.
//
// # Entities
//
//   - [TargetConfig]: Immutable per-target configuration (endpoints,
//     credentials, poll interval)
//   - [Build]: A published software revision with its publish timestamp
//   - [StatusEvent]: One event delivered over a target's event stream
//   - [Completion]: A one-shot, multiple-writer-safe result cell used to
//     resolve an update cycle exactly once
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
