// Package api provides the HTTP driving adapter.
//
// Routes:
//
//	GET  /health                    liveness
//	GET  /ready                     knowledge base reachability
//	GET  /metrics                   prometheus exposition
//	POST /api/v1/analyze-report     explain an uploaded image (always 200)
//	POST /api/v1/ingest-document    add guideline documents
//
// Every response carries permissive CORS headers and OPTIONS is answered
// directly with 200.
package api
