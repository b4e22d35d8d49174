// Command pipectl pushes, pulls and inspects geometry trees on pipe
// endpoints, serves the HTTP relay, and checks the local environment.
//
// An endpoint is either a bare name (a local pipe in the runtime directory)
// or a URL: http(s):// for the relay, redis(s):// for Redis.
package main
