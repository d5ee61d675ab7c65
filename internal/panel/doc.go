// Package panel keeps the rows of the variable panel in step with the host's
// Local and Global collections.
//
// A Controller is either unmounted (no rows, engine idle) or mounted (one
// section per scope, engine polling). User mutations and engine ticks
// serialize on the controller's mutex, so a renderer only ever sees the
// result of a whole operation.
package panel
