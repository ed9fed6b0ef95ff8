// Package logtail reads the end of tradedeck's own log file for the log view.
//
// Read keeps a ring buffer of the last N lines, so memory stays bounded no
// matter how large the file grows. Parse recognizes the level of records
// written by logrus in either text or JSON format, and Tail combines the two
// with a minimum-severity filter. Lines with no recognizable level, such as
// wrapped stack traces, are kept so context is not lost.
package logtail
