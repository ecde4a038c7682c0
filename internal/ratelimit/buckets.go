package ratelimit

// Bucket names. Each bucket is evaluated independently; a request may be
// limited on one bucket while unlimited on another.
const (
	// BucketGeneral applies to nearly every authenticated route.
	BucketGeneral = "general"
	// BucketAI applies only to AI summary generation.
	BucketAI = "ai"
	// BucketUpload applies to file uploads.
	BucketUpload = "upload"
	// BucketDownloadLink applies to issuing new download tokens.
	BucketDownloadLink = "download_link"
)

// Window label constants shared by the default policies.
const (
	WindowSecond = int64(1)
	WindowMinute = int64(60)
	WindowHour   = int64(3600)
	WindowDay    = int64(86400)
)

// DefaultPolicies returns the stock limit tables per bucket. Values are
// policy, not mechanism; config may override them.
func DefaultPolicies() map[string][]Limit {
	return map[string][]Limit{
		BucketGeneral: {
			{Name: "second", Max: 10, WindowSeconds: WindowSecond},
			{Name: "minute", Max: 60, WindowSeconds: WindowMinute},
			{Name: "day", Max: 5000, WindowSeconds: WindowDay},
		},
		BucketAI: {
			{Name: "minute", Max: 1, WindowSeconds: WindowMinute},
			{Name: "day", Max: 5, WindowSeconds: WindowDay},
		},
		BucketUpload: {
			{Name: "day", Max: 20, WindowSeconds: WindowDay},
		},
		BucketDownloadLink: {
			{Name: "hour", Max: 120, WindowSeconds: WindowHour},
		},
	}
}
