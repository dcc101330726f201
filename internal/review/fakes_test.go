package review

import (
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"sync"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/documentstore"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/redaction"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/representation"
	repmodel "github.com/Planning-Inspectorate/crown-developments-sub002/internal/representation/model"
)

func strPtr(s string) *string { return &s }

// fakeLedger keeps representations in memory. Writes made inside
// WithReviewTx are only applied when the callback succeeds.
type fakeLedger struct {
	reps map[string]repmodel.Representation
	docs map[string][]repmodel.Document

	getErr       error
	updateDocErr error
	commits      int
}

func newFakeLedger(rep repmodel.Representation, docs ...repmodel.Document) *fakeLedger {
	return &fakeLedger{
		reps: map[string]repmodel.Representation{rep.Reference: rep},
		docs: map[string][]repmodel.Document{rep.Reference: docs},
	}
}

func (l *fakeLedger) GetRepresentation(_ context.Context, reference string) (*repmodel.Representation, error) {
	if l.getErr != nil {
		return nil, l.getErr
	}
	rep, ok := l.reps[reference]
	if !ok {
		return nil, representation.ErrRepresentationNotFound
	}
	return &rep, nil
}

func (l *fakeLedger) ListDocuments(_ context.Context, reference string) ([]repmodel.Document, error) {
	return slices.Clone(l.docs[reference]), nil
}

func (l *fakeLedger) document(reference, itemID string) *repmodel.Document {
	for i := range l.docs[reference] {
		if l.docs[reference][i].ItemID == itemID {
			return &l.docs[reference][i]
		}
	}
	return nil
}

func (l *fakeLedger) WithReviewTx(_ context.Context, fn func(tx representation.ReviewWriter) error) error {
	w := &fakeWriter{
		ledger: l,
		reps:   map[string]repmodel.Representation{},
		docs:   map[string][]repmodel.Document{},
	}
	for ref, rep := range l.reps {
		w.reps[ref] = rep
		w.docs[ref] = slices.Clone(l.docs[ref])
	}
	if err := fn(w); err != nil {
		return err
	}
	l.reps, l.docs = w.reps, w.docs
	l.commits++
	return nil
}

type fakeWriter struct {
	ledger *fakeLedger
	reps   map[string]repmodel.Representation
	docs   map[string][]repmodel.Document
}

func (w *fakeWriter) UpdateRepresentationReview(_ context.Context, reference string, status repmodel.Status, commentRedacted *string) error {
	rep, ok := w.reps[reference]
	if !ok {
		return representation.ErrRepresentationNotFound
	}
	rep.Status = status
	rep.CommentRedacted = commentRedacted
	w.reps[reference] = rep
	return nil
}

func (w *fakeWriter) GetDocumentForUpdate(_ context.Context, reference, itemID string) (*repmodel.Document, error) {
	for _, doc := range w.docs[reference] {
		if doc.ItemID == itemID {
			return &doc, nil
		}
	}
	return nil, representation.ErrDocumentNotFound
}

func (w *fakeWriter) UpdateDocumentReview(_ context.Context, doc *repmodel.Document) error {
	if w.ledger.updateDocErr != nil {
		return w.ledger.updateDocErr
	}
	docs := w.docs[doc.RepresentationReference]
	for i := range docs {
		if docs[i].ItemID == doc.ItemID {
			docs[i] = *doc
		}
	}
	return nil
}

// fakeDocumentStore records every document store call
type fakeDocumentStore struct {
	mu sync.Mutex

	folders        map[string]bool
	items          map[string]string
	moved          []string
	movedTo        string
	deleted        []string
	deletedFolders []string
	nextID         int

	moveErr   error
	deleteErr error
	uploadErr error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{
		folders: map[string]bool{},
		items:   map[string]string{},
	}
}

func (f *fakeDocumentStore) MoveItemsToFolder(_ context.Context, itemIDs []string, destFolderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moveErr != nil {
		return f.moveErr
	}
	f.moved = append(f.moved, itemIDs...)
	f.movedTo = destFolderID
	for _, id := range itemIDs {
		f.items[id] = destFolderID
	}
	return nil
}

func (f *fakeDocumentStore) DeleteDocumentByID(_ context.Context, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, itemID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.items, itemID)
	return nil
}

func (f *fakeDocumentStore) GetDriveItemByPath(_ context.Context, p string) (*documentstore.DriveItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.folders[p] {
		return nil, documentstore.ErrNotFound
	}
	return &documentstore.DriveItem{ID: p, Name: path.Base(p), Path: p, IsFolder: true}, nil
}

func (f *fakeDocumentStore) AddNewFolder(_ context.Context, parentPath, name string) (*documentstore.DriveItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := path.Join(parentPath, name)
	f.folders[p] = true
	return &documentstore.DriveItem{ID: p, Name: name, Path: p, IsFolder: true}, nil
}

func (f *fakeDocumentStore) UploadDocument(_ context.Context, folderID, fileName string, body io.Reader, size int64) (*documentstore.DriveItem, error) {
	if _, err := io.ReadAll(body); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.nextID++
	id := fmt.Sprintf("upload-%d", f.nextID)
	f.items[id] = folderID
	return &documentstore.DriveItem{ID: id, Name: fileName, Path: path.Join(folderID, id, fileName), Size: size}, nil
}

func (f *fakeDocumentStore) DeleteFolder(_ context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedFolders = append(f.deletedFolders, p)
	delete(f.folders, p)
	return nil
}

// fakeSuggester returns a fixed suggestion
type fakeSuggester struct {
	suggestion *redaction.Suggestion
	calls      int
}

func (f *fakeSuggester) Enabled() bool { return true }

func (f *fakeSuggester) FetchRedactionSuggestions(_ context.Context, _ string) *redaction.Suggestion {
	f.calls++
	return f.suggestion
}
