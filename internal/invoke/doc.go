// Package invoke calls authorizer and integration functions.
//
// A function runs either in-process (Local) or as a deployed AWS Lambda
// function (Lambda). Both take the HTTP API v2 payloads, so the origin
// treats them alike. Every invocation has its own deadline; an
// invocation that outlives it fails with ErrInvocationTimeout no matter
// what the function does afterwards.
package invoke
