// Package core defines the shared domain model and collaborator contracts for
// the helpmesh agent turn pipeline: agents, conversations, messages, the
// persistence store interfaces, and the external collaborator interfaces
// (usage metering, quota enforcement, retrieval, job queue, email, sentiment).
//
// core is the leaf package of the module; every other package imports it and
// it imports nothing above the standard library. Higher layers (orchestrator,
// workflow, action, handoff) communicate exclusively through the types and
// interfaces declared here, which keeps collaborators swappable in tests.
package core
