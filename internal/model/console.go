package model

import "time"

// EntryKind tells a console client how to render an entry.
type EntryKind string

const (
	EntryCommand EntryKind = "command"
	EntryOutput  EntryKind = "output"
	EntryError   EntryKind = "error"
	EntryInfo    EntryKind = "info"
)

// ConsoleEntry is one line-group in a session's console history.
type ConsoleEntry struct {
	ID        string    `json:"id"`
	Kind      EntryKind `json:"kind"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a snapshot of a console session: the selected language, the
// editor buffer and the history below it.
type Session struct {
	ID         string         `json:"id"`
	Language   string         `json:"language"`
	Source     string         `json:"source"`
	History    []ConsoleEntry `json:"history"`
	Running    bool           `json:"running"`
	CreatedAt  time.Time      `json:"createdAt"`
	LastActive time.Time      `json:"lastActive"`
}
