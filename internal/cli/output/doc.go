// Package output renders kvmesh-cli results as a table, JSON or YAML.
//
// Command replies print the way redis-cli prints them in table mode and as
// plain values in the machine-readable formats. Admin API results are
// structs rendered through their yaml/json tags.
package output
