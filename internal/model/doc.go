// Package model defines the core data structures shared by the report pipeline.
//
// This package contains the following main types:
//   - Section: one of the 11 fixed report topics and its scoring metadata
//   - District and ReportRequest: the validated input of a run
//   - SectionData: statistics retrieved for one section
//   - SectionResult and ReportDocument: the generated report
//   - Scorecard: the district's overall marks across all components
//
// Models live in their own package so that the fetcher, composer, generator,
// writers and history database can share them without import cycles.
// All of them serialize to JSON for report output and history storage.
package model
