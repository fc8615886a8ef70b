// Package http holds the gin handlers of the sandbox backend. Routes are
// registered by the server package.
package http
