// Package graphclient is the external Graph API contract (spec.md §2, §6):
// mailbox mail, Teams channel messages, and document-library file
// operations. No Graph SDK is vendored anywhere in the retrieval pack, so
// this is a thin net/http client in the teacher's own hand-rolled-REST-client
// idiom (see internal/vectorindex's HTTPClient) — justified in DESIGN.md.
package graphclient

import "context"

// Message is one mail or Teams channel message.
type Message struct {
	ID      string
	Subject string
	Body    string
	// From is the sender's email address (mail) or UPN if known (Teams).
	From string
	// SenderObjectID is the Teams sender's AAD object id, the authoritative
	// self-filter signal; empty for mail.
	SenderObjectID string
	// SenderName is the Teams sender's display name, the self-filter
	// fallback when object-id and UPN are both unavailable.
	SenderName string
	ThreadID   string
	ReceivedAt string
}

// File is a document-library file entry.
type File struct {
	ID       string
	Name     string
	FolderID string
	Size     int64
}

// Client is the narrow surface Pollers, TaskMover, and the ingestion path
// depend on.
type Client interface {
	// Mail
	ListMailSince(ctx context.Context, mailbox, folder, cursor string) ([]Message, string, error)
	MoveMail(ctx context.Context, mailbox, messageID, destFolder string) error
	SendMail(ctx context.Context, mailbox string, to []string, subject, bodyHTML string) error

	// Teams
	ListChannelMessagesSince(ctx context.Context, teamID, channelID, cursor string) ([]Message, string, error)
	PostChannelMessage(ctx context.Context, teamID, channelID, bodyHTML string) error

	// Directory
	ResolveUserByObjectID(ctx context.Context, objectID string) (displayName, email, login string, err error)

	// Files
	UploadFile(ctx context.Context, libraryID, folderID, name string, content []byte) (*File, error)
	MoveFile(ctx context.Context, libraryID, fileID, destFolderID string) error
	DeleteFile(ctx context.Context, libraryID, fileID string) error
	EnsureFolder(ctx context.Context, libraryID, parentFolderID, name string) (folderID string, err error)
}
