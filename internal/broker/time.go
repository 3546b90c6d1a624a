package broker

import "time"

const timeFormat = time.RFC3339

// timeNow is swapped out in tests to pin throttle windows.
var timeNow = time.Now
