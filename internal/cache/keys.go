package cache

import "fmt"

// Key construction lives in pure functions so the read side and the
// invalidation side can never drift apart.

// IntakePageKey identifies one page of a user's intake listing. A nil
// date is the "all dates" partition, distinct from any specific date.
func IntakePageKey(userID int64, date *string, page int) string {
	if date != nil {
		return fmt.Sprintf("user:intakes:%d:date:%s:page:%d", userID, *date, page)
	}
	return fmt.Sprintf("user:intakes:%d:all:page:%d", userID, page)
}

// IntakeDatePattern matches every page of one date partition.
func IntakeDatePattern(userID int64, date string) string {
	return fmt.Sprintf("user:intakes:%d:date:%s:page:*", userID, date)
}

// IntakeAllDatesPattern matches every page of the "all dates" partition.
func IntakeAllDatesPattern(userID int64) string {
	return fmt.Sprintf("user:intakes:%d:all:page:*", userID)
}

// IntakeUserPattern matches every intake cache entry of the user.
func IntakeUserPattern(userID int64) string {
	return fmt.Sprintf("user:intakes:%d:*", userID)
}

// TemplatesKey identifies the user's whole template list; the list is
// small and always read wholesale, so one entry per user suffices.
func TemplatesKey(userID int64) string {
	return fmt.Sprintf("meal:templates:%d", userID)
}
