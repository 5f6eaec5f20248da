package models

import "time"

// Backup describes one snapshot of the user store written to disk.
type Backup struct {
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	Users     int       `json:"users"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}
