// Package documentstore moves, uploads and deletes representation documents
// held outside the relational store.
package documentstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no item exists at the requested path
var ErrNotFound = errors.New("drive item not found")

// DriveItem is a file or folder in the document store
type DriveItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	IsFolder bool   `json:"isFolder"`
	Size     int64  `json:"size,omitempty"`
}

// DocumentStore is the document store capability used by the review workflow
type DocumentStore interface {
	MoveItemsToFolder(ctx context.Context, itemIDs []string, destFolderID string) error
	DeleteDocumentByID(ctx context.Context, itemID string) error
	GetDriveItemByPath(ctx context.Context, path string) (*DriveItem, error)
	AddNewFolder(ctx context.Context, parentPath, name string) (*DriveItem, error)
	UploadDocument(ctx context.Context, folderID, fileName string, body io.Reader, size int64) (*DriveItem, error)
	DeleteFolder(ctx context.Context, path string) error
}
