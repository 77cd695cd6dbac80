// Package httpapi exposes retrieval and answering over HTTP.
//
// The tenant is taken only from the Authorization header
// ("Bearer tenant:<id>" or "Bearer tenant=<id>"). Request bodies never carry
// a tenant. /health and /metrics need no authentication.
package httpapi
