package utils

import "time"

// NowMillis returns the current time as epoch milliseconds, the timestamp
// unit every sync record carries.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
