// Package classify assigns each series of a study to a BIDS naming template.
//
// Series are walked in acquisition order. Each protocol name is parsed, the
// run counter is advanced, and the resulting filename suffix is combined with
// the data type directory into a TemplateKey. Series whose keys render
// identically share one template. Derived and scout series are skipped, and
// names that do not parse are reported as unrecognized.
package classify
