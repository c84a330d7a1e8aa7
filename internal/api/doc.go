// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It adapts external clients to the image
// service: multipart uploads in, status polls and history out, with
// internal errors mapped to sanitized responses and status codes.
package api
