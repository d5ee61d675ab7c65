// Package reconcile keeps a rendered variable panel in step with the host's
// live collections.
//
// The engine polls instead of hooking the host's mutation points: the
// collections are written by the panel itself and by host subsystems the
// panel knows nothing about. Each tick compares a serialized snapshot of both
// scopes with the live state. A values-only change is patched into the
// existing rows; a change in the key set of a scope rebuilds that scope's
// rows.
package reconcile
