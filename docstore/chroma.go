package docstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"

	"github.com/gamma-omg/docqa/document"
)

// Metadata keys stored alongside every embedding.
const (
	EmbeddingID  = "embedding_id"
	ChunkID      = "chunk_id"
	DocumentID   = "document_id"
	DocumentName = "document_name"
	OwnerID      = "owner_id"
	ChunkIndex   = "chunk_index"
	StartChar    = "start_char"
	EndChar      = "end_char"
	DocumentTags = "document_tags"
	DocumentType = "document_type"
	UploadedAt   = "uploaded_at"
	ProcessedAt  = "processed_at"
	ModelName    = "model_name"
	TotalChunks  = "total_chunks"
	ChunkLength  = "chunk_length"
	FileCrc      = "file_crc"
)

// collection is the subset of chroma.Collection the store uses.
type collection interface {
	Add(ctx context.Context, opts ...chroma.CollectionUpdateOption) error
	Query(ctx context.Context, opts ...chroma.CollectionQueryOption) (chroma.QueryResult, error)
	Delete(ctx context.Context, opts ...chroma.CollectionDeleteOption) error
	Get(ctx context.Context, opts ...chroma.CollectionGetOption) (chroma.GetResult, error)
}

// ChromaStore keeps each owner's chunks in a dedicated chroma collection
// named prefix_owner. Owners never see each other's data because every
// operation resolves the collection from the owner id.
type ChromaStore struct {
	client    chroma.Client
	prefix    string
	modelName string
	ef        embeddings.EmbeddingFunction

	mu   sync.Mutex
	cols map[string]collection
}

type ChromaStoreConfig struct {
	BaseURL          string
	CollectionPrefix string
	EmbeddingFunc    embeddings.EmbeddingFunction
	ModelName        string
}

func NewChromaStore(cfg ChromaStoreConfig) (*ChromaStore, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	return &ChromaStore{
		client:    client,
		prefix:    cfg.CollectionPrefix,
		modelName: cfg.ModelName,
		ef:        cfg.EmbeddingFunc,
		cols:      make(map[string]collection),
	}, nil
}

func (ds *ChromaStore) collection(ctx context.Context, ownerID string) (collection, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if col, ok := ds.cols[ownerID]; ok {
		return col, nil
	}

	name := fmt.Sprintf("%s_%s", ds.prefix, ownerID)
	col, err := ds.client.GetOrCreateCollection(ctx, name,
		chroma.WithEmbeddingFunctionCreate(ds.ef))
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}

	ds.cols[ownerID] = col
	return col, nil
}

// Add stores all chunks of a processed document in one batch. The write is
// all or nothing: on error no chunk of the document is considered indexed.
func (ds *ChromaStore) Add(ctx context.Context, doc *document.Document) error {
	if len(doc.Chunks) == 0 {
		return fmt.Errorf("document %s has no chunks to index", doc.ID)
	}

	col, err := ds.collection(ctx, doc.OwnerID)
	if err != nil {
		return err
	}

	ids := chunkIDs(doc)
	texts := make([]string, 0, len(doc.Chunks))
	metas := make([]chroma.DocumentMetadata, 0, len(doc.Chunks))
	for _, chunk := range doc.Chunks {
		texts = append(texts, chunk.Content)
		metas = append(metas, ds.chunkMetadata(doc, chunk))
	}

	err = col.Add(ctx,
		chroma.WithIDs(ids...),
		chroma.WithTexts(texts...),
		chroma.WithMetadatas(metas...))
	if err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}

	return nil
}

// chunkIDs keys every index record by its chunk id, so removal by document
// id cascades over exactly the chunks that were added.
func chunkIDs(doc *document.Document) []chroma.DocumentID {
	ids := make([]chroma.DocumentID, 0, len(doc.Chunks))
	for _, chunk := range doc.Chunks {
		ids = append(ids, chroma.DocumentID(chunk.ID))
	}

	return ids
}

func (ds *ChromaStore) chunkMetadata(doc *document.Document, chunk document.Chunk) chroma.DocumentMetadata {
	attrs := []*chroma.MetaAttribute{
		chroma.NewStringAttribute(EmbeddingID, uuid.NewString()),
		chroma.NewStringAttribute(ChunkID, chunk.ID),
		chroma.NewStringAttribute(DocumentID, doc.ID),
		chroma.NewStringAttribute(DocumentName, doc.Filename),
		chroma.NewStringAttribute(OwnerID, doc.OwnerID),
		chroma.NewIntAttribute(ChunkIndex, int64(chunk.Index)),
		chroma.NewIntAttribute(StartChar, int64(chunk.StartChar)),
		chroma.NewIntAttribute(EndChar, int64(chunk.EndChar)),
		chroma.NewStringAttribute(DocumentTags, encodeTags(doc.Tags)),
		chroma.NewStringAttribute(DocumentType, string(doc.Type)),
		chroma.NewStringAttribute(UploadedAt, doc.UploadedAt.Format(time.RFC3339)),
		chroma.NewStringAttribute(ModelName, ds.modelName),
		chroma.NewIntAttribute(TotalChunks, int64(len(doc.Chunks))),
		chroma.NewIntAttribute(ChunkLength, int64(len(chunk.Content))),
	}
	if !doc.ProcessedAt.IsZero() {
		attrs = append(attrs, chroma.NewStringAttribute(ProcessedAt, doc.ProcessedAt.Format(time.RFC3339)))
	}
	if crc, ok := doc.Metadata[FileCrc].(uint32); ok {
		attrs = append(attrs, chroma.NewIntAttribute(FileCrc, int64(crc)))
	}

	return chroma.NewDocumentMetadata(attrs...)
}

// Query runs a semantic search over the owner's collection and returns raw
// hits. A single document id filter is pushed down to chroma; multi-id and
// tag filters are applied to the returned hits because the tags live as one
// comma joined string in the index.
func (ds *ChromaStore) Query(ctx context.Context, ownerID, query string, n int, filter Filter) ([]Hit, error) {
	col, err := ds.collection(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	opts := []chroma.CollectionQueryOption{
		chroma.WithQueryTexts(query),
		chroma.WithNResults(n),
	}
	if len(filter.DocumentIDs) == 1 {
		opts = append(opts, chroma.WithWhereQuery(chroma.EqString(DocumentID, filter.DocumentIDs[0])))
	}

	r, err := col.Query(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	docs := r.GetDocumentsGroups()[0]
	metadatas := r.GetMetadatasGroups()[0]
	distances := r.GetDistancesGroups()[0]

	hits := make([]Hit, 0, len(docs))
	for i := range docs {
		hit := hitFromMetadata(metadatas[i])
		hit.Content = docs[i].ContentString()
		hit.Distance = float64(distances[i])
		if !filter.matches(hit) {
			continue
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

func hitFromMetadata(meta chroma.DocumentMetadata) Hit {
	chunkID, _ := meta.GetString(ChunkID)
	docID, _ := meta.GetString(DocumentID)
	docName, _ := meta.GetString(DocumentName)
	index, _ := meta.GetInt(ChunkIndex)

	var tags []string
	if joined, ok := meta.GetString(DocumentTags); ok {
		tags = decodeTags(joined)
	}

	return Hit{
		ChunkID:      chunkID,
		DocumentID:   docID,
		DocumentName: docName,
		ChunkIndex:   int(index),
		Tags:         tags,
	}
}

// encodeTags joins tags into one metadata string, escaping commas and
// backslashes so a tag containing a comma survives the round trip.
func encodeTags(tags []string) string {
	var sb strings.Builder
	for i, tag := range tags {
		if i > 0 {
			sb.WriteByte(',')
		}
		for j := 0; j < len(tag); j++ {
			if tag[j] == ',' || tag[j] == '\\' {
				sb.WriteByte('\\')
			}
			sb.WriteByte(tag[j])
		}
	}

	return sb.String()
}

func decodeTags(joined string) []string {
	if joined == "" {
		return nil
	}

	var tags []string
	var cur strings.Builder
	escaped := false
	for i := 0; i < len(joined); i++ {
		c := joined[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == ',':
			tags = append(tags, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	tags = append(tags, cur.String())

	return tags
}

// Remove deletes every chunk of a document. Removing an unknown document is
// a no-op.
func (ds *ChromaStore) Remove(ctx context.Context, ownerID, documentID string) error {
	col, err := ds.collection(ctx, ownerID)
	if err != nil {
		return err
	}

	err = col.Delete(ctx, chroma.WithWhereDelete(chroma.EqString(DocumentID, documentID)))
	if err != nil {
		return fmt.Errorf("failed to remove document %s: %w", documentID, err)
	}

	return nil
}

// Stats walks the owner's collection and aggregates per document and per
// tag counts.
func (ds *ChromaStore) Stats(ctx context.Context, ownerID string) (Stats, error) {
	col, err := ds.collection(ctx, ownerID)
	if err != nil {
		return Stats{}, err
	}

	res, err := col.Get(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read collection: %w", err)
	}

	docs := res.GetDocuments()
	sizes := make([]int, len(docs))
	for i, doc := range docs {
		sizes[i] = len(doc.ContentString())
	}

	return aggregateStats(res.GetMetadatas(), sizes), nil
}

// aggregateStats tallies every record: type and tag counts are per chunk,
// only TotalDocuments deduplicates by document id.
func aggregateStats(metas []chroma.DocumentMetadata, sizes []int) Stats {
	stats := Stats{
		DocumentTypes: make(map[string]int),
		Tags:          make(map[string]int),
	}

	seen := make(map[string]struct{})
	for i, meta := range metas {
		stats.TotalChunks++
		if i < len(sizes) {
			stats.TotalSize += sizes[i]
		}

		docType, ok := meta.GetString(DocumentType)
		if !ok || docType == "" {
			docType = "unknown"
		}
		stats.DocumentTypes[docType]++

		if joined, ok := meta.GetString(DocumentTags); ok {
			for _, tag := range decodeTags(joined) {
				stats.Tags[tag]++
			}
		}

		docID, _ := meta.GetString(DocumentID)
		if _, ok := seen[docID]; ok {
			continue
		}
		seen[docID] = struct{}{}
		stats.TotalDocuments++
	}

	return stats
}

// Ingested lists the documents currently present in the owner's collection,
// one entry per document id.
func (ds *ChromaStore) Ingested(ctx context.Context, ownerID string) ([]IngestedDoc, error) {
	col, err := ds.collection(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	res, err := col.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}

	var docs []IngestedDoc
	seen := make(map[string]struct{})
	for _, meta := range res.GetMetadatas() {
		docID, _ := meta.GetString(DocumentID)
		if _, ok := seen[docID]; ok {
			continue
		}
		seen[docID] = struct{}{}

		name, _ := meta.GetString(DocumentName)
		crc, _ := meta.GetInt(FileCrc)
		docs = append(docs, IngestedDoc{
			DocumentID: docID,
			Filename:   name,
			Crc:        uint32(crc),
		})
	}

	return docs, nil
}
