// Package httpapp is the server-rendered web frontend.
//
// Every page is backed by a controller from internal/views. GET handlers
// mount the controller for the lifetime of the request and render its
// state; POST handlers run one action and redirect, carrying alerts to
// the next page as session flashes.
//
// The browser only holds a signed cookie with a random session id. The
// API token lives server-side in the configured store.Backend.
package httpapp
