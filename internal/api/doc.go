// Package api is the HTTP front end of the daemon.
//
// All responses use one JSON envelope: {"result":"ok","data":...} or
// {"result":"error","code":...,"message":...}, each with a correlationId equal
// to the request ID. Routes live under /api/v1; /metrics is served beside them
// when metrics are enabled.
package api
