// Package runcounter tracks BIDS run numbers across the series of one study.
//
// Protocol names carry either an explicit run number ("run-3"), an increment
// sigil ("run+"), or a reuse sigil ("run="). The counter walks the series in
// acquisition order and turns those tokens into "run-NN" labels. Fieldmaps are
// acquired as a magnitude series followed by a phase series; the phase half
// shares the magnitude's run instead of incrementing it.
package runcounter
