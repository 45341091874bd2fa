// Package http exposes the meeting-room booking services over a JSON API.
// Handlers decode requests, delegate to the application layer and render
// localized responses; routing uses the standard library mux with explicit
// method switches.
package http
