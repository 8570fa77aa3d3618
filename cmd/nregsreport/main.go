// Package main provides the entry point for the nregsreport CLI.
//
// nregsreport writes a narrative performance report for one district of
// Madhya Pradesh from the statistics published on the NREGS dashboard.
// Each report section is analysed by a large language model.
//
// Usage:
//
//	nregsreport generate 2025-03-19 SIDHI
//	nregsreport districts --division Rewa
//	nregsreport history SIDHI
//
// See --help for all available options.
package main

import "os"

// main is the entry point for nregsreport.
func main() {
	os.Exit(Execute())
}
