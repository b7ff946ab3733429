package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/elimu-hub/cbc-chatbot/config"
)

// DirectoryIndexer keeps a local directory of curriculum files in sync with
// the document collection. It scans once at startup and then watches for
// changes, re-indexing modified files and removing deleted ones.
type DirectoryIndexer struct {
	store      VectorStore
	ingest     IngestService
	collection string
	dirPath    string
}

func NewDirectoryIndexer(store VectorStore, ingest IngestService, cfg *config.Config) *DirectoryIndexer {
	return &DirectoryIndexer{
		store:      store,
		ingest:     ingest,
		collection: cfg.DocumentCollection,
		dirPath:    cfg.IndexPath,
	}
}

// sourceState holds the content hash of a file already in the index.
type sourceState struct {
	Hash string
}

// Run scans the directory and then blocks watching it until the context is
// cancelled. Intended to be launched as a goroutine from main.
func (s *DirectoryIndexer) Run(ctx context.Context) {
	if s.dirPath == "" {
		return
	}
	s.scanDirectory(ctx)
	s.watchDirectory(ctx)
}

func (s *DirectoryIndexer) scanDirectory(ctx context.Context) {
	log.Printf("INDEXER: Starting directory scan for: %s", s.dirPath)

	indexed, err := s.currentIndexState(ctx)
	if err != nil {
		log.Printf("INDEXER ERROR: Could not read current index state: %v", err)
		return
	}
	log.Printf("INDEXER: Found %d files currently in the index.", len(indexed))

	localFiles := make(map[string]bool)
	err = filepath.Walk(s.dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isSupportedSource(path) {
			return nil
		}
		localFiles[path] = true

		hash, err := hashFile(path)
		if err != nil {
			log.Printf("INDEXER WARN: Could not hash file %s: %v", path, err)
			return nil
		}
		if state, ok := indexed[path]; ok {
			if state.Hash == hash {
				return nil // unchanged
			}
			log.Printf("INDEXER: File has changed: %s. Re-indexing...", path)
			if err := s.store.DeleteBySource(ctx, s.collection, path); err != nil {
				log.Printf("INDEXER ERROR: Failed to delete old version of %s: %v", path, err)
				return nil
			}
		}

		if err := s.indexFile(ctx, path, hash); err != nil {
			log.Printf("INDEXER ERROR: Failed to process file %s: %v", path, err)
		}
		return nil
	})
	if err != nil {
		log.Printf("INDEXER ERROR: Error walking the path %s: %v", s.dirPath, err)
	}

	// Files that disappeared while the server was down.
	for path := range indexed {
		if !localFiles[path] {
			log.Printf("INDEXER: File deleted: %s. Removing from index...", path)
			if err := s.store.DeleteBySource(ctx, s.collection, path); err != nil {
				log.Printf("INDEXER ERROR: Failed to delete records for %s: %v", path, err)
			}
		}
	}
	log.Println("INDEXER: Directory scan finished.")
}

func (s *DirectoryIndexer) watchDirectory(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isSupportedSource(event.Name) {
					continue
				}

				// Editors often write via a temp file and a rename, so Create
				// and Write are handled identically, and Rename like Remove.
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					log.Printf("WATCHER: File modified/created: %s. Re-indexing...", event.Name)
					hash, err := hashFile(event.Name)
					if err != nil {
						log.Printf("WATCHER WARN: Could not hash file %s: %v", event.Name, err)
						continue
					}
					if err := s.store.DeleteBySource(ctx, s.collection, event.Name); err != nil {
						log.Printf("WATCHER WARN: Failed to delete old records for %s: %v", event.Name, err)
					}
					if err := s.indexFile(ctx, event.Name, hash); err != nil {
						log.Printf("WATCHER ERROR: Failed to process file %s: %v", event.Name, err)
					}
				} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					log.Printf("WATCHER: File removed/renamed: %s. Removing from index...", event.Name)
					if err := s.store.DeleteBySource(ctx, s.collection, event.Name); err != nil {
						log.Printf("WATCHER ERROR: Failed to delete records for %s: %v", event.Name, err)
					}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WATCHER ERROR: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Printf("WATCHER: Watching directory: %s", s.dirPath)
	if err := watcher.Add(s.dirPath); err != nil {
		log.Printf("WATCHER ERROR: Failed to add path to watcher: %v", err)
	}

	<-ctx.Done()
	log.Println("WATCHER: Context cancelled, shutting down watcher.")
}

func (s *DirectoryIndexer) indexFile(ctx context.Context, path, hash string) error {
	content, err := ExtractText(path)
	if err != nil {
		return err
	}
	_, err = s.ingest.IngestText(ctx, path, content, map[string]string{
		"source_file": path,
		"file_hash":   hash,
		"type":        "local_file",
	})
	return err
}

// currentIndexState rebuilds path -> content hash from the stored metadata.
func (s *DirectoryIndexer) currentIndexState(ctx context.Context) (map[string]sourceState, error) {
	state := make(map[string]sourceState)
	metadatas, err := s.store.AllMetadatas(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	for _, meta := range metadatas {
		path, ok := meta["source_file"].(string)
		if !ok {
			continue
		}
		hash, ok := meta["file_hash"].(string)
		if !ok {
			continue
		}
		if _, exists := state[path]; !exists {
			state[path] = sourceState{Hash: hash}
		}
	}
	return state, nil
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
