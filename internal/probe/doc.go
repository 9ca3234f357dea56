// Package probe runs short-lived subprocesses on behalf of the resolver
// and the provisioner.
//
// Every version query, import check, and pip install is a synchronous
// request/response across a process boundary. The Prober interface
// captures exactly that capability so the resolution and provisioning
// logic stays pure and can be exercised in tests with a fake instead of
// real interpreters. ExecProber is the os/exec-backed production
// implementation and bounds every subprocess with an explicit timeout.
package probe
