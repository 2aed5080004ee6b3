// Package httpapi serves the approval queue over HTTP: the review endpoints
// used by the bundled web page, submission and listing endpoints for
// producers and publishers, a status summary, and Prometheus metrics.
//
// The server holds no queue state between requests; every call goes straight
// to the queue service, so several servers and the terminal reviewer can share
// one database.
package httpapi
