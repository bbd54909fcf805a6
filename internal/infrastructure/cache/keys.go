package cache

import (
	"fmt"
	"strings"
)

const (
	KeyActivePlans = "plans:all:active"
	// PatternPlans clears both plan:* and plans:* keys.
	PatternPlans = "plan*"
)

func PlanKey(id uint) string {
	return fmt.Sprintf("plan:%d", id)
}

func PlanCodeKey(code string) string {
	return "plan:code:" + strings.ToLower(code)
}

func PromoKey(code string) string {
	return "promo:" + strings.ToUpper(code)
}

func UsageKey(userID uint, month string) string {
	return fmt.Sprintf("usage:%d:%s", userID, month)
}

func ActiveSubscriptionKey(userID uint) string {
	return fmt.Sprintf("subscription:user:%d:active", userID)
}

// keyspace is the first segment of a key, used as a metrics label.
func keyspace(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
