// Package shared holds helpers used by several packages' tests.
//
// The testutil subpackage builds synthetic walking recordings (Walk), writes
// them as pressure workbooks or csv exports, and captures slog output so
// tests can assert on structured log records:
//
//	logger, buf := testutil.NewTestLogger(t)
//	rec := testutil.Recording("walk", testutil.Walk(3, 20, 0.01))
//
// Nothing here may be imported by production code.
package shared
