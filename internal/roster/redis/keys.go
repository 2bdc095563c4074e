package redis

import "fmt"

const keyPrefix = "pokernight"

// tableKey returns the Redis key holding one table of a session
func tableKey(sessionID string, number int) string {
	return fmt.Sprintf("%s:session:%s:table:%d", keyPrefix, sessionID, number)
}

// tablesIndexKey returns the Redis key for the SET of open table numbers of a session
func tablesIndexKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s:tables", keyPrefix, sessionID)
}
