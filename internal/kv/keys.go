package kv

import "fmt"

func JobStateKey() string {
	return "jobs:state"
}

func CatalogKey(provider string) string {
	return fmt.Sprintf("catalog:models:%s", provider)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
