// Package rtlog centralizes the unstructured warn/info logging the
// teacher scatters across call sites via bare log.Println/log.Fatalf
// (see hedisam-goactor's process_registry.go and actor/actor.go), so the
// error-handling policy in spec.md §7 ("log at warn", "log a warning")
// has one place to live instead of being duplicated at every call site.
package rtlog

import (
	"log"
	"os"
)

var std = log.New(os.Stderr, "actorcore: ", log.LstdFlags)

// SetOutput lets embedding applications redirect actorcore's log output.
func SetOutput(l *log.Logger) {
	if l != nil {
		std = l
	}
}

// Warnf logs a recoverable-fault warning: registry conflicts, closed
// peer sessions, dropped unmatched messages.
func Warnf(format string, args ...interface{}) {
	std.Printf("WARN "+format, args...)
}

// Infof logs a non-fault informational event: peer connected, actor
// spawned under a name.
func Infof(format string, args ...interface{}) {
	std.Printf("INFO "+format, args...)
}
