// Package district holds the compiled-in registry of Madhya Pradesh districts.
//
// The registry is the only source of valid district names: command line
// input is validated against it before any request is sent to the dashboard.
package district
