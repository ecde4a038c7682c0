package ratelimit

import (
	"fmt"
	"strconv"
)

// Headers renders the per-window response headers for an outcome. Every
// evaluated window gets limit/remaining/reset headers, exceeded or not.
func Headers(bucket string, outcome Outcome) map[string]string {
	headers := make(map[string]string, len(outcome.Windows)*3)
	for _, w := range outcome.Windows {
		suffix := fmt.Sprintf("%s-%s", bucket, w.Limit.Name)
		headers["X-RateLimit-Limit-"+suffix] = strconv.FormatInt(w.Limit.Max, 10)
		headers["X-RateLimit-Remaining-"+suffix] = strconv.FormatInt(w.Remaining, 10)
		headers["X-RateLimit-Reset-"+suffix] = strconv.FormatInt(w.Reset, 10)
	}
	return headers
}
