// Package middleware provides the HTTP middleware of the watch-mode server:
// a key=value access log and Prometheus request metrics, both keyed by route
// template when installed with Router.Use, and gzip compression of JSON and
// text responses.
package middleware
