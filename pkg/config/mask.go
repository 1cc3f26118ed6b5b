package config

import "strings"

const maskedValue = "***"

// sensitiveKeywords mark attribute names whose values must never be printed.
var sensitiveKeywords = []string{
	"token",
	"secret",
	"credential",
	"password",
	"database_url",
	"redis_url",
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
