// Package report renders district report documents.
//
// Three formats implement Writer:
//   - MarkdownWriter: GitHub-flavored Markdown with scorecard tables and alerts
//   - JSONWriter: the document as JSON for tool integration
//   - TextWriter: plain text for terminals and printing
//
// Every format lists all sections in report order; sections without an
// analysis are rendered as placeholders. WriteFile writes one report file
// per run.
package report
