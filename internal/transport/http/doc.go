// Package http contains the chi handlers for the trust API. Handlers
// bind and validate requests, call the service layer, and render either
// the service response or an RFC 7807 problem document.
package http
