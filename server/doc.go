// Package server exposes analysis runs over HTTP.
//
// Routes:
//
//	GET  /healthz                            liveness
//	GET  /metrics                            Prometheus exposition
//	GET  /api/shops                          shops with records
//	POST /api/analysis                       run an analysis, JSON report
//	GET  /api/analysis/{shopID}/workbook     run an analysis, xlsx download
//
// {shopID} is a numeric shop id or "all" for the cross-shop aggregate.
// Unknown shops answer 404, invalid requests 400.
package server
