package main

import (
	"context"
	"fmt"
	"hash/crc32"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gamma-omg/docqa/docstore"
	"github.com/gamma-omg/docqa/document"
)

type uploadProcessor interface {
	Process(ctx context.Context, ownerID string, up document.Upload) (*document.Document, error)
}

type registryStore interface {
	Ingested(ctx context.Context, ownerID string) ([]docstore.IngestedDoc, error)
	Remove(ctx context.Context, ownerID, documentID string) error
}

// DocRegistry keeps the index in sync with a folder on disk: files dropped
// into the folder get processed and indexed, removed files get forgotten.
type DocRegistry struct {
	log              *slog.Logger
	root             string
	ownerID          string
	mergeEventsDelay time.Duration
	store            registryStore
	processor        uploadProcessor
}

type DiskDoc struct {
	File string
	Type document.Type
	Crc  uint32
}

type diskDocs map[string]DiskDoc
type dbDocs map[string]docstore.IngestedDoc

var extTypes = map[string]document.Type{
	".pdf":  document.TypePDF,
	".txt":  document.TypeTXT,
	".docx": document.TypeDOCX,
	".md":   document.TypeMD,
}

func (dr *DocRegistry) Sync(ctx context.Context) error {
	disk, err := dr.collectDocs()
	if err != nil {
		return err
	}

	diskMap := make(diskDocs)
	for _, d := range disk {
		diskMap[d.File] = d
	}

	db, err := dr.store.Ingested(ctx, dr.ownerID)
	if err != nil {
		return err
	}

	dbMap := make(dbDocs)
	for _, d := range db {
		dbMap[d.Filename] = d
	}

	err = dr.forgetRemovedDocuments(ctx, diskMap, dbMap)
	if err != nil {
		return err
	}

	err = dr.ingestNewDocuments(ctx, diskMap, dbMap)
	if err != nil {
		return err
	}

	return nil
}

// Watch re-syncs the folder after filesystem events quiesce for the merge
// delay. It returns once the watcher is installed; syncing happens in the
// background until ctx is cancelled.
func (dr *DocRegistry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	err = watcher.Add(dr.root)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dr.root, err)
	}

	delay := dr.mergeEventsDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}

	go func() {
		defer watcher.Close()

		timer := time.NewTimer(delay)
		if !timer.Stop() {
			<-timer.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				dr.log.Error("watcher error", "error", err)
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				timer.Reset(delay)
			case <-timer.C:
				if err := dr.Sync(ctx); err != nil {
					dr.log.Error("sync failed", "error", err)
				}
			}
		}
	}()

	return nil
}

func (dr *DocRegistry) collectDocs() (docs []DiskDoc, err error) {
	err = filepath.Walk(dr.root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		docType, ok := extTypes[filepath.Ext(path)]
		if !ok {
			dr.log.Warn("unsupported file", "file", path)
			return nil
		}

		content, e := os.ReadFile(path)
		if e != nil {
			return e
		}

		rel, e := filepath.Rel(dr.root, path)
		if e != nil {
			return e
		}

		docs = append(docs, DiskDoc{
			File: rel,
			Type: docType,
			Crc:  crc32.Checksum(content, crc32.IEEETable),
		})

		return nil
	})
	if err != nil {
		return
	}

	return
}

func (dr *DocRegistry) ingestNewDocuments(ctx context.Context, disk diskDocs, db dbDocs) error {
	for _, diskDoc := range disk {
		dbDoc, ok := db[diskDoc.File]
		if ok && dbDoc.Crc == diskDoc.Crc {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dr.root, diskDoc.File))
		if err != nil {
			return fmt.Errorf("failed to read document %s: %w", diskDoc.File, err)
		}

		doc, err := dr.processor.Process(ctx, dr.ownerID, document.Upload{
			Filename: diskDoc.File,
			Type:     diskDoc.Type,
			Size:     len(content),
			Content:  content,
			Metadata: map[string]any{docstore.FileCrc: diskDoc.Crc},
		})
		if err != nil {
			dr.log.Warn("failed to ingest document",
				"file", diskDoc.File,
				"status", doc.Status,
				"error", err)
			continue
		}
	}

	return nil
}

func (dr *DocRegistry) forgetRemovedDocuments(ctx context.Context, disk diskDocs, db dbDocs) error {
	for _, dbDoc := range db {
		diskDoc, ok := disk[dbDoc.Filename]
		if ok && diskDoc.Crc == dbDoc.Crc {
			continue
		}

		err := dr.store.Remove(ctx, dr.ownerID, dbDoc.DocumentID)
		if err != nil {
			return fmt.Errorf("failed to remove document %s from store: %w", dbDoc.Filename, err)
		}
	}

	return nil
}
