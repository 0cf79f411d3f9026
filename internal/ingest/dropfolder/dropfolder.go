// Package dropfolder is a supplementary local ingestion path (spec.md §C
// item 1): a file dropped into a configured local directory is uploaded
// through the same GraphClient.UploadFile path as a web-originated upload,
// then run through ContentExtractor + KnowledgeSync. Grounded on the
// teacher's fsnotify-based FileWatcher (archived
// internal/mcp/watcher/file_watcher.go), adapted from code-reindex
// debouncing to file-ingest debouncing.
package dropfolder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ideagraph/internal/domain"
	"ideagraph/internal/extract"
	"ideagraph/internal/graphclient"
	"ideagraph/internal/knowledge"
	"ideagraph/internal/store"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	debounceWindow = 500 * time.Millisecond
	libraryID      = "default"
)

var extensionKinds = map[string]extract.Kind{
	".txt":  extract.KindPlain,
	".md":   extract.KindMarkdown,
	".html": extract.KindHTML,
	".htm":  extract.KindHTML,
	".pdf":  extract.KindPDF,
	".docx": extract.KindDOCX,
}

// Watcher watches one local directory and ingests files dropped into it
// under a fixed default Item.
type Watcher struct {
	fsWatcher     *fsnotify.Watcher
	dir           string
	defaultItemID string
	uploaderID    string

	graph     graphclient.Client
	extractor *extract.Extractor
	sync      *knowledge.Sync
	files     store.ItemFileStore

	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	logger *zap.Logger
}

func New(dir, defaultItemID, uploaderID string, graph graphclient.Client, extractor *extract.Extractor, sync *knowledge.Sync, files store.ItemFileStore, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("dropfolder: create fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsWatcher:      fsWatcher,
		dir:            dir,
		defaultItemID:  defaultItemID,
		uploaderID:     uploaderID,
		graph:          graph,
		extractor:      extractor,
		sync:           sync,
		files:          files,
		debounceTimers: make(map[string]*time.Timer),
		logger:         logger,
	}, nil
}

// Run watches the configured directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("dropfolder: watch %s: %w", w.dir, err)
	}
	defer w.fsWatcher.Close()

	w.logger.Info("dropfolder: watching for new files", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("dropfolder: watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.debounceTimers[event.Name]; exists {
		timer.Stop()
	}
	w.debounceTimers[event.Name] = time.AfterFunc(debounceWindow, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, event.Name)
		w.debounceMu.Unlock()

		if err := w.ingest(ctx, event.Name); err != nil {
			w.logger.Error("dropfolder: ingest failed", zap.String("path", event.Name), zap.Error(err))
		}
	})
}

func (w *Watcher) ingest(ctx context.Context, path string) error {
	kind, ok := extensionKinds[strings.ToLower(filepath.Ext(path))]
	if !ok {
		w.logger.Debug("dropfolder: skipping unrecognized file type", zap.String("path", path))
		return nil
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read dropped file: %w", err)
	}

	name := filepath.Base(path)
	// defaultItemID doubles as the destination folder id here: this path
	// targets one fixed, pre-provisioned Item rather than resolving a
	// folder per upload the way the web upload path does.
	externalFile, err := w.graph.UploadFile(ctx, libraryID, w.defaultItemID, name, body)
	if err != nil {
		return fmt.Errorf("upload dropped file: %w", err)
	}

	fileID := uuid.NewString()
	chunks, err := w.extractor.Extract(kind, body, fileID, name)
	if err != nil {
		return fmt.Errorf("extract dropped file content: %w", err)
	}

	file := &domain.ItemFile{
		ID:             fileID,
		ItemID:         w.defaultItemID,
		Filename:       name,
		Size:           int64(len(body)),
		ContentType:    string(kind),
		ExternalFileID: externalFile.ID,
		UploaderID:     w.uploaderID,
		CreatedAt:      time.Now(),
	}
	if err := w.files.Create(ctx, file); err != nil {
		return fmt.Errorf("persist item file: %w", err)
	}

	chunkTexts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		chunkTexts = append(chunkTexts, c.Text)
	}
	w.sync.SyncFileChunks(ctx, fileID, w.defaultItemID, name, chunkTexts)

	if err := w.files.SetIndexed(ctx, fileID, true); err != nil {
		return fmt.Errorf("mark item file indexed: %w", err)
	}

	w.logger.Info("dropfolder: ingested file", zap.String("path", path), zap.Int("chunks", len(chunkTexts)))
	return nil
}
