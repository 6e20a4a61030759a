// Package fake provides deterministic, offline implementations of the model
// ports. They back the memory storage driver and the service tests.
package fake
