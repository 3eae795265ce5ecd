// Package api hosts the HTTP handlers that front the Clipstream REST API.
//
// The handlers assembled by Handler coordinate request validation, credential
// awareness, and response shaping while delegating persistence to
// storage.Repository implementations and credential work to auth.Service
// instances injected at construction time. The package does not reach for
// globals or singletons and expects callers to supply fully configured
// dependencies.
//
// Handler implementations assume upstream middleware from internal/server has
// already enforced authentication, metrics, and logging concerns. New routes
// should preserve that contract by leaning on the middleware guarantees
// established in the server stack.
package api
