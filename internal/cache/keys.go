package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func UserRateLimitKey(userID uuid.UUID) string {
	return fmt.Sprintf("ratelimit:user:%s", userID)
}

func IPRateLimitKey(ip string) string {
	return fmt.Sprintf("ratelimit:ip:%s", ip)
}

func RevokedTokenKey(id string) string {
	return fmt.Sprintf("revoked:token:%s", id)
}
