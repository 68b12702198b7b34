// Package services defines the shared error taxonomy for vectra components.
//
// Every failure path in the daemon resolves to one of the sentinel errors in
// errors.go: boundary validation problems are rejected before any state
// mutation, pipeline stage failures become a terminal job error, and render
// failures stay local to the requesting export call. The Wrap helper attaches
// component/operation context while keeping errors.Is classification intact,
// and HTTPStatus translates a classified error into the API response code.
package services
