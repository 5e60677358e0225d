// Package redisstore keeps club engagement metrics in Redis.
//
// Each club has one hash with its counters and last activity time, plus a
// set of seen event ids. A Lua script applies each event atomically, so
// concurrent producers and redelivered events never double count.
package redisstore
