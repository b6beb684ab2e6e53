// Package backend is the HTTP client for the budget query service.
//
// The service exposes five JSON endpoints under a common base URL, which may
// include a deployment path prefix such as /BudgetQuery:
//
//   - /api/interpret     natural language to SQL, or a clarifying question
//   - /api/execute       runs SQL and returns the result set as CSV
//   - /api/observations  best-effort summary of a result set
//   - /api/feedback      thumbs up/down with an optional comment
//   - /api/download      the result of a query as an Excel workbook
//
// Non-2xx responses carry {"error": "..."}; the message is returned as an
// *APIError so callers can show it verbatim.
package backend
