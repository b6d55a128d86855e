// Package inbox discovers queries from request files dropped into a directory.
//
// Each request is a JSON file:
//
//	{"query_id": "0x…", "document_blob_id": "…", "question": "…", "key": "<hex>", "iv": "<hex>"}
//
// Files are consumed once and removed. Writers should create the file under
// another name (for example "req.json.tmp") and rename it into place, since
// only names ending in .json are read. Unparseable files are renamed with an
// .invalid suffix so they are not read again.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driving"
	"github.com/anynomousfriend/Fathom-0x/internal/logger"
)

// Ensure Source implements the interface.
var _ driving.QuerySource = (*Source)(nil)

const (
	requestExt = ".json"
	invalidExt = ".invalid"
)

// Request is the on-disk request format.
type Request struct {
	QueryID        string `json:"query_id"`
	DocumentBlobID string `json:"document_blob_id"`
	Question       string `json:"question"`
	Key            string `json:"key"`
	IV             string `json:"iv"`
}

// ToQuery decodes key material and returns the pipeline request.
// Decoding errors never include the key or iv text.
func (r Request) ToQuery() (domain.QueryRequest, error) {
	key, err := domain.DecodeKeyHex("key", r.Key)
	if err != nil {
		return domain.QueryRequest{}, err
	}
	iv, err := domain.DecodeKeyHex("iv", r.IV)
	if err != nil {
		clear(key)
		return domain.QueryRequest{}, err
	}
	return domain.QueryRequest{
		QueryID:        r.QueryID,
		DocumentBlobID: r.DocumentBlobID,
		Question:       r.Question,
		DecryptionKey:  key,
		IV:             iv,
	}, nil
}

// Source watches a directory for request files.
type Source struct {
	dir string
}

// New creates an inbox source over dir. The directory is created on Run if
// it does not exist.
func New(dir string) *Source {
	return &Source{dir: dir}
}

// Name implements driving.QuerySource.
func (s *Source) Name() string {
	return "inbox"
}

// Dir returns the watched directory.
func (s *Source) Dir() string {
	return s.dir
}

// Run implements driving.QuerySource. Files already present are delivered
// first, in name order.
func (s *Source) Run(ctx context.Context, out chan<- domain.QueryRequest) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating inbox: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watching inbox: %w", err)
	}

	existing, err := s.pending()
	if err != nil {
		return err
	}
	for _, path := range existing {
		if err := s.consume(ctx, path, out); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path, ok := requestPath(event)
			if !ok {
				continue
			}
			if err := s.consume(ctx, path, out); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.With(zap.Error(err)).Warn("inbox watcher error")
		}
	}
}

// requestPath returns the file to read for event, if any.
func requestPath(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || filepath.Ext(base) != requestExt {
		return "", false
	}
	return event.Name, true
}

// pending lists request files already in the directory.
func (s *Source) pending() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading inbox: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != requestExt {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// consume reads, removes and delivers one request file. The error is
// non-nil only when ctx is done.
func (s *Source) consume(ctx context.Context, path string, out chan<- domain.QueryRequest) error {
	log := logger.With(zap.String("file", filepath.Base(path)))

	req, err := readRequest(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Already consumed, or renamed away.
			return nil
		}
		log.Warn("rejecting inbox file", zap.Error(err))
		if renameErr := os.Rename(path, path+invalidExt); renameErr != nil {
			log.Warn("renaming rejected file failed", zap.Error(renameErr))
		}
		return nil
	}

	if err := os.Remove(path); err != nil {
		req.Wipe()
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		log.Warn("removing inbox file failed", zap.Error(err))
		return nil
	}

	select {
	case out <- req:
		log.Debug("query received from inbox", zap.String("query_id", req.QueryID))
		return nil
	case <-ctx.Done():
		req.Wipe()
		return ctx.Err()
	}
}

func readRequest(path string) (domain.QueryRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.QueryRequest{}, err
	}
	var raw Request
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.QueryRequest{}, fmt.Errorf("parsing request: %w", err)
	}
	req, err := raw.ToQuery()
	if err != nil {
		return domain.QueryRequest{}, err
	}
	if err := req.Validate(); err != nil {
		req.Wipe()
		return domain.QueryRequest{}, err
	}
	return req, nil
}
