// Package driving defines interfaces that external actors (CLI, MCP, HTTP)
// use to interact with core services. These are the "driving" ports in
// hexagonal architecture terminology - they drive the application.
//
// Every operation takes the caller's tenant explicitly. Driving adapters
// resolve it from authenticated context, never from a request payload.
//
// Implementations of these interfaces live in internal/core/services.
package driving
