// Package redisserver serves the command executor over RESP2.
//
// Each accepted connection is served by one goroutine that reads a
// command (array or inline form), executes it and writes the reply before
// reading the next one. SUBSCRIBE attaches endpoints to the connection;
// each endpoint gets a delivery goroutine that frames messages as
// "*3 message <channel> <payload>". Replies and message frames share one
// write lock so frames never interleave.
//
// Optional per-IP rate limiting and requirepass AUTH are applied here.
package redisserver
