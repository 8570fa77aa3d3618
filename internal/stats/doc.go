// Package stats turns raw dashboard rows into the summaries embedded in prompts.
//
// For every section it merges the section's endpoint responses, rounds
// values to 2 decimals, ranks districts and blocks on the section's
// ranking metric, and computes state and district averages. It also
// builds the overall district scorecard. Everything here is pure and
// deterministic; no function performs I/O.
package stats
