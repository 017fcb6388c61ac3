// Package origin implements the API layer in front of the functions.
//
// Each route binds one method and path to exactly one authorizer and one
// integration. For a matched request the origin builds the HTTP API v2
// event, asks the authorizer with the configured identity header as the
// identity source and, only on allow, invokes the integration once and
// writes its response back unchanged.
//
// A request without the identity header is denied without invoking the
// authorizer. Denials use the same body as the edge firewall.
package origin
