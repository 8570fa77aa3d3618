// Package pipeline runs the steps of a district report in order.
//
// The default pipeline fetches the dashboard statistics, computes the
// scorecard, composes one prompt per available section and generates the
// analysis of each. Steps share a Run; failures confined to one section
// are recorded on the run's document and the pipeline carries on.
package pipeline
