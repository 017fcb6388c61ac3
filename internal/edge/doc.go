// Package edge implements the distribution in front of the origin.
//
// Every request passes the allow-list firewall first. Passed requests
// lose any client-supplied value of the secret header, get the shared
// secret set instead and are reverse proxied to the origin. The origin
// response is returned as is, with the edge's Via and X-Request-ID
// headers added.
package edge
