// Package heuristic runs the complete conversion heuristic for a study:
// skip-listed series are dropped, known studies are fixed up, per-study
// policies are selected, and the batch is classified and its identity
// resolved.
//
// Studies are independent. Processor.ProcessAll fans a set of batches out to
// a bounded number of workers.
package heuristic
