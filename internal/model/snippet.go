// Package model defines the data structures shared by the storage, service
// and HTTP layers.
package model

import "time"

// Snippet is a saved program in the snippet library.
//
// EditKeyHash never leaves the server: the `json:"-"` tag keeps
// encoding/json from writing it, so a Snippet can be returned from a
// handler as is.
type Snippet struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Code        string    `json:"code"`
	EditKeyHash string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
