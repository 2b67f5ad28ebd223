package transport

import "strings"

// maxErrorLength bounds the human-readable error strings recorded in
// failure reasons and log events.
const maxErrorLength = 512

// describeError flattens err into a bounded single-line description.
func describeError(err error) string {
	if err == nil {
		return "no error"
	}
	msg := strings.ReplaceAll(err.Error(), "\n", "; ")
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength-3] + "..."
	}
	return msg
}
