// Package logs locates and tails per-run log files.
//
// Every production run writes its own log under <log_dir>/runs/<run id>.log.
// Tail reads the last N lines with bounded memory and can follow the file for
// new lines, which powers `bookforge runs log --follow` while a run is still
// producing in another terminal.
package logs
