package encounter

// Cache keys and pub/sub channels used per encounter.
func lastRoundKey(id string) string { return "encounter:" + id + ":last_round" }
func historyKey(id string) string   { return "encounter:" + id + ":history" }

// LogChannel is the pub/sub channel carrying an encounter's log lines as
// JSON-encoded battle.LogEntry values.
func LogChannel(id string) string { return "encounter:" + id + ":log" }
