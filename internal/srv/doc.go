// Package srv holds the SRV record and endpoint value objects and the
// RFC 2782 server-selection algorithm.
//
// A lookup produces a set of Records; Select turns that set into a
// failover-ordered sequence of HostPorts: ascending priority bands first,
// weighted random selection without replacement within each band. The
// randomness source is injected (see IntN), there is no package-global
// generator state.
package srv
