package session

import "time"

// timeFormat is the timestamp layout used across all session documents.
const timeFormat = time.RFC3339

// timeNow is a package-level variable for testability.
// Tests can replace this to control time in assertions.
var timeNow = time.Now
