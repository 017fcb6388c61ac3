// Package gatekeeper assembles the edge and the origin from one
// configuration document.
//
// The build runs as a plan of named steps with declared dependencies:
// the firewall and the shared secret first, then the functions that need
// the secret, the origin that binds them to routes, the edge in front of
// the origin and finally the operator outputs. Any failing step aborts the
// build with a provisioning error, so nothing half-built can serve
// traffic.
package gatekeeper
