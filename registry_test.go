package main

import (
	"context"
	"errors"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamma-omg/docqa/docstore"
	"github.com/gamma-omg/docqa/document"
)

type fakeProcessor struct {
	processed []document.Upload
	err       error

	// when set, successful uploads are reflected in the store's ingested list
	store *fakeRegistryStore
}

func (p *fakeProcessor) Process(ctx context.Context, ownerID string, up document.Upload) (*document.Document, error) {
	if p.err != nil {
		return &document.Document{Status: document.StatusFailed}, p.err
	}
	p.processed = append(p.processed, up)
	if p.store != nil {
		crc, _ := up.Metadata[docstore.FileCrc].(uint32)
		p.store.ingested = append(p.store.ingested, docstore.IngestedDoc{
			DocumentID: up.Filename,
			Filename:   up.Filename,
			Crc:        crc,
		})
	}
	return &document.Document{
		ID:       up.Filename,
		OwnerID:  ownerID,
		Filename: up.Filename,
		Status:   document.StatusProcessed,
	}, nil
}

func (p *fakeProcessor) processedFiles() []string {
	files := make([]string, 0, len(p.processed))
	for _, up := range p.processed {
		files = append(files, up.Filename)
	}

	return files
}

type fakeRegistryStore struct {
	ingested    []docstore.IngestedDoc
	removeCalls []string
}

func (s *fakeRegistryStore) Ingested(ctx context.Context, ownerID string) ([]docstore.IngestedDoc, error) {
	return s.ingested, nil
}

func (s *fakeRegistryStore) Remove(ctx context.Context, ownerID, documentID string) error {
	s.removeCalls = append(s.removeCalls, documentID)
	s.ingested = slices.DeleteFunc(s.ingested, func(d docstore.IngestedDoc) bool {
		return d.DocumentID == documentID
	})
	return nil
}

func newTestRegistry(root string, store *fakeRegistryStore, processor *fakeProcessor) *DocRegistry {
	return &DocRegistry{
		log:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		root:             root,
		ownerID:          "user1",
		mergeEventsDelay: 20 * time.Millisecond,
		store:            store,
		processor:        processor,
	}
}

func createFile(t *testing.T, dir, name, content string) DiskDoc {
	t.Helper()
	buff := []byte(content)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buff, 0o644))
	return DiskDoc{
		File: name,
		Crc:  crc32.Checksum(buff, crc32.IEEETable),
	}
}

func Test_Sync(t *testing.T) {
	tmp := t.TempDir()

	createFile(t, tmp, "f1.txt", "f1")
	createFile(t, tmp, "f3.pdf", "f3")
	f2 := createFile(t, tmp, "f2.txt", "f2")

	store := &fakeRegistryStore{
		ingested: []docstore.IngestedDoc{
			{DocumentID: "id2", Filename: "f2.txt", Crc: f2.Crc},
			{DocumentID: "id3", Filename: "f3.pdf", Crc: 0},
			{DocumentID: "id4", Filename: "f4.pdf", Crc: 4},
		},
	}
	processor := &fakeProcessor{}
	reg := newTestRegistry(tmp, store, processor)

	require.NoError(t, reg.Sync(context.Background()))

	// f1 is new, f3 changed on disk, f2 is unchanged
	assert.ElementsMatch(t, []string{"f1.txt", "f3.pdf"}, processor.processedFiles())
	assert.ElementsMatch(t, []string{"id3", "id4"}, store.removeCalls)
}

func Test_Sync_IgnoresUnsupportedFiles(t *testing.T) {
	tmp := t.TempDir()

	createFile(t, tmp, "notes.txt", "notes")
	createFile(t, tmp, "image.png", "binary")

	store := &fakeRegistryStore{}
	processor := &fakeProcessor{}
	reg := newTestRegistry(tmp, store, processor)

	require.NoError(t, reg.Sync(context.Background()))
	assert.Equal(t, []string{"notes.txt"}, processor.processedFiles())
}

func Test_Sync_KeepsGoingOnProcessingFailure(t *testing.T) {
	tmp := t.TempDir()

	createFile(t, tmp, "bad.txt", "bad")

	store := &fakeRegistryStore{}
	processor := &fakeProcessor{err: errors.New("extraction failed")}
	reg := newTestRegistry(tmp, store, processor)

	// a document that fails processing must not abort the sync
	require.NoError(t, reg.Sync(context.Background()))
}

func Test_ingestNewDocuments(t *testing.T) {
	tmp := t.TempDir()

	f1 := createFile(t, tmp, "f1.txt", "f1 content")
	f2 := createFile(t, tmp, "f2.txt", "f2 content")

	processor := &fakeProcessor{}
	reg := newTestRegistry(tmp, &fakeRegistryStore{}, processor)

	disk := diskDocs{
		"f1.txt": DiskDoc{File: "f1.txt", Type: document.TypeTXT, Crc: f1.Crc},
		"f2.txt": DiskDoc{File: "f2.txt", Type: document.TypeTXT, Crc: f2.Crc},
	}
	db := dbDocs{
		"f2.txt": docstore.IngestedDoc{DocumentID: "id2", Filename: "f2.txt", Crc: f2.Crc},
		"f3.txt": docstore.IngestedDoc{DocumentID: "id3", Filename: "f3.txt", Crc: 34567},
	}

	require.NoError(t, reg.ingestNewDocuments(context.Background(), disk, db))

	require.Len(t, processor.processed, 1)
	up := processor.processed[0]
	assert.Equal(t, "f1.txt", up.Filename)
	assert.Equal(t, document.TypeTXT, up.Type)
	assert.Equal(t, []byte("f1 content"), up.Content)
	assert.Equal(t, len("f1 content"), up.Size)
	assert.Equal(t, f1.Crc, up.Metadata[docstore.FileCrc])
}

func Test_forgetRemovedDocuments(t *testing.T) {
	store := &fakeRegistryStore{}
	reg := newTestRegistry(t.TempDir(), store, &fakeProcessor{})

	disk := diskDocs{
		"f1.txt": DiskDoc{File: "f1.txt", Crc: 12345},
		"f2.txt": DiskDoc{File: "f2.txt", Crc: 23456},
	}
	db := dbDocs{
		"f2.txt": docstore.IngestedDoc{DocumentID: "id2", Filename: "f2.txt", Crc: 23456},
		"f3.txt": docstore.IngestedDoc{DocumentID: "id3", Filename: "f3.txt", Crc: 34567},
	}

	require.NoError(t, reg.forgetRemovedDocuments(context.Background(), disk, db))
	assert.Equal(t, []string{"id3"}, store.removeCalls)
}

func Test_collectDocs(t *testing.T) {
	tmp := t.TempDir()

	f1 := createFile(t, tmp, "f1.txt", "f1 content")
	createFile(t, tmp, "skip.bin", "binary")

	reg := newTestRegistry(tmp, &fakeRegistryStore{}, &fakeProcessor{})

	docs, err := reg.collectDocs()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "f1.txt", docs[0].File)
	assert.Equal(t, document.TypeTXT, docs[0].Type)
	assert.Equal(t, f1.Crc, docs[0].Crc)
}

func Test_Watch(t *testing.T) {
	tmp := t.TempDir()

	store := &fakeRegistryStore{}
	processor := &fakeProcessor{store: store}
	reg := newTestRegistry(tmp, store, processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, reg.Watch(ctx))
	time.Sleep(100 * time.Millisecond)

	createFile(t, tmp, "f1.txt", "f1")
	time.Sleep(200 * time.Millisecond)

	assert.Contains(t, processor.processedFiles(), "f1.txt")

	require.NoError(t, os.Remove(filepath.Join(tmp, "f1.txt")))
	time.Sleep(200 * time.Millisecond)

	assert.NotEmpty(t, store.removeCalls)
}
