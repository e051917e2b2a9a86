// Package models defines the persisted entities of the letter service.
package models

import (
	"database/sql"
	"time"
)

// Thread status values. A thread is created either public (addressed to
// nobody, waiting in the shared pool) or private (addressed directly at
// creation). The only transition is public -> picked, performed exactly once
// by the assignment engine; picked and private threads never change status.
const (
	StatusPublic  = "public"
	StatusPrivate = "private"
	StatusPicked  = "picked"
)

// Thread is a single letter.
type Thread struct {
	ID          string
	SenderID    string
	RecipientID sql.NullString
	Title       string
	Content     string
	Status      string
	IsRead      bool
	PickedAt    sql.NullTime
	ReadAt      sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Attachment kind values.
const (
	AttachmentImage = "image"
	AttachmentFile  = "file"
	AttachmentAudio = "audio"
)

// Attachment is a blob reference owned by a thread; it lives and dies with
// its thread (FK cascade). The URL is an opaque string minted by object
// storage.
type Attachment struct {
	ID       string
	ThreadID string
	URL      string
	Filename string
	Kind     string
}
