package query

import "time"

// NormalizeValues converts driver-specific scan results into JSON-friendly values:
// byte slices become strings and dates become ISO-8601 text.
func NormalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case time.Time:
			normalized[i] = formatTime(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func formatTime(value time.Time) string {
	if value.Hour() == 0 && value.Minute() == 0 && value.Second() == 0 && value.Nanosecond() == 0 {
		return value.Format(time.DateOnly)
	}
	return value.Format(time.RFC3339)
}
