// Package tokencache caches a bearer credential for one upstream provider
// and single-flights refreshes under concurrent demand.
package tokencache
