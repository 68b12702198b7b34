// Package daemon assembles the conversion services into the long-running
// process: artifact store, progress hub, job manager, batch coordinator, and
// the API server. A lock file keeps execution single-instance per host.
package daemon
