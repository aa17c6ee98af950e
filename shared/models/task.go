package models

import "time"

// Task is a single to-do record owned by one session user id.
// CreatedAt is stored as epoch milliseconds and is the list sort key.
type Task struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	UserID    string `json:"userId"`
	CreatedAt int64  `json:"createdAt"`
}

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
