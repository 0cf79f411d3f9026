package domain

import "time"

// ItemFile is an uploaded file attached to an Item, mirrored into the
// external file store. Deleting it cascades to the remote file and all
// derived knowledge chunks (spec.md §3).
type ItemFile struct {
	ID               string    `json:"id" bson:"_id"`
	ItemID           string    `json:"itemId" bson:"itemId"`
	Filename         string    `json:"filename" bson:"filename"`
	Size             int64     `json:"size" bson:"size"`
	ContentType      string    `json:"contentType" bson:"contentType"`
	ExternalFileID   string    `json:"externalFileId" bson:"externalFileId"`
	ExternalURL      string    `json:"externalUrl" bson:"externalUrl"`
	UploaderID       string    `json:"uploaderId" bson:"uploaderId"`
	Indexed          bool      `json:"indexed" bson:"indexed"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt"`
}
