// Package conductor provides a multi-tenant workflow scheduling engine
// for Go. Tenants define workflows (named collections of branches, each
// branch an ordered list of job specifications drawn from a template
// registry) and execute them by materializing the entry branch into job
// instances that flow through a global, admission-controlled scheduler.
//
// Conductor is designed as a library, not a service. Import it, configure
// a store, register job templates, and drive it through the engine
// package. A thin HTTP layer (api) and a server binary (cmd/conductord)
// are provided for callers that want to poll it over REST.
//
// # Quick Start
//
//	reg := template.NewRegistry()
//	template.Register(reg, template.FakeSleep())
//
//	eng, err := engine.New(conductor.DefaultConfig(), memory.New(), reg)
//
// # Architecture
//
// Conductor follows a composable store pattern where each subsystem
// (tenant, workflow, job, cron) defines its own store interface. A single
// backend implements all of them; memory and Redis backends ship with the
// module.
//
// Scheduling is admission-based: executed workflows append PENDING job
// instances to a global FIFO, and the scheduler admits them for execution
// subject to a global concurrency ceiling, a per-tenant concurrency
// ceiling, and a global run/pause switch. Per-tenant fairness overrides
// strict FIFO: a tenant at its limit never blocks another tenant's jobs.
//
// Job and run IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package conductor
