package domain

import "time"

// ArtifactEvent announces that a program has written its output.
type ArtifactEvent struct {
	Program   string    `json:"program"`
	Path      string    `json:"path"`
	Records   int       `json:"records"`
	WrittenAt time.Time `json:"written_at"`
}
