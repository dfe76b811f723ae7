package service

import "time"

// LogFilter narrows the activity log by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "DETECTION_TOGGLE", "ACCESS_LOG_DELETE", "SENSOR_ERROR", ...
}

// HistoryFilter narrows the reading history.
type HistoryFilter struct {
	From  time.Time
	To    time.Time
	Limit int // non-positive means the repository default
}
