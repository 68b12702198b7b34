// Package api exposes the daemon's HTTP surface: submission, status, segment
// edits, exports, batches, and the websocket status stream. Handlers stay
// thin; they parse, delegate to the job services, and map classified errors
// onto response codes.
package api
