// Package api exposes the HTTP surface of the serve command: health, metrics, the latest run
// report, and on-demand runs.
package api
