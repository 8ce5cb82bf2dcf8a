// Package ratelimit provides an adaptive per-provider request spacer.
//
// Unlike a fixed sleep, the limiter grows its minimum inter-request interval
// on upstream throttling and shrinks it back toward a configured floor on
// sustained success, converging to the provider's real tolerance.
package ratelimit
