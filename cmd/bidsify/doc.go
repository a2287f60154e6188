// Command bidsify classifies DICOM series batches into BIDS naming templates
// and resolves where each study belongs.
//
// Batches are JSON or YAML files produced by the DICOM scanner. Correction
// tables for studies acquired before the naming convention was followed are
// embedded and can be replaced through the configuration file.
package main
