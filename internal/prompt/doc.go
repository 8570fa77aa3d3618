// Package prompt composes the LLM prompt of each report section.
//
// Every section has an embedded template that frames its topic. A shared
// frame wraps it with the analyst role, the state and district data as
// JSON blocks, the scoring criteria and the requested <analysis> answer
// structure. Composition performs no I/O; Archive optionally keeps a copy
// of each prompt on disk.
package prompt
