// Package core defines the shared domain types of the outreach engine:
// sessions, resumable workflow state, step outcomes, interrupts and the
// collaborator interfaces implemented elsewhere (session stores, scrapers,
// content generators, message senders). Higher level packages (manager,
// workflow, server) depend on core; core depends on nothing but the
// standard library and uuid.
package core
