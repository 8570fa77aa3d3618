// Package dashboard retrieves report statistics from the NREGS Madhya Pradesh dashboard.
//
// Client issues GET requests against the dashboard's JSON API:
//
//	{baseURL}/api/employment_workers/{endpoint}?date=YYYY-MM-DD[&district=NAME]
//
// Without a district the response has one row per district of the state;
// with one it has one row per block of that district. Every response is a
// JSON object whose "results" array holds the rows.
//
// Fetcher builds on Client to produce the summarized data of each report
// section. A failing section never aborts the run: it is returned as
// unavailable and the report renders a placeholder for it.
package dashboard
