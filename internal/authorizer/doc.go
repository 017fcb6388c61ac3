// Package authorizer implements the cfAuth request authorizer.
//
// The authorizer compares the identity source the API layer extracted
// (the edge secret header) with the shared secret it was provisioned
// with and answers with a simple allow or deny. It holds no state
// between invocations and runs unchanged in-process or as a Lambda
// function through Handle.
package authorizer
