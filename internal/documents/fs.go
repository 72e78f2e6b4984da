/*
Copyright 2026 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package documents

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
)

const DefaultPattern = "*"

// FSConfig locates the local files loaded as documents.
type FSConfig struct {
	BasePath string `json:"base_path" yaml:"base_path"`
	// Pattern is a glob relative to BasePath. Empty matches every file directly under it.
	Pattern string `json:"pattern" yaml:"pattern"`
	// MaxFileSize skips larger files. Zero uses DefaultMaxObjectSize.
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`
}

// FSLoader reads every file matching a glob under a base directory as one document.
type FSLoader struct {
	basePath    string
	pattern     string
	maxFileSize int64
}

func NewFSLoader(cfg FSConfig) (*FSLoader, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("documents base path is empty")
	}
	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultPattern
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxObjectSize
	}
	return &FSLoader{basePath: filepath.Clean(absPath), pattern: cfg.Pattern, maxFileSize: cfg.MaxFileSize}, nil
}

// resolvePath joins location to the base path, refusing anything that escapes it.
func (l *FSLoader) resolvePath(location string) (string, error) {
	fullPath := filepath.Join(l.basePath, filepath.Clean(location))
	if !strings.HasPrefix(fullPath, l.basePath+string(os.PathSeparator)) && fullPath != l.basePath {
		return "", fmt.Errorf("invalid path: %w", os.ErrInvalid)
	}
	return fullPath, nil
}

// Load reads the matching files in lexical order. Directories and files larger than
// the size limit are skipped.
func (l *FSLoader) Load(ctx context.Context) ([]chat.Document, error) {
	logger := klog.FromContext(ctx).WithValues("basePath", l.basePath, "pattern", l.pattern)
	fullPattern, err := l.resolvePath(l.pattern)
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(fullPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	var docs []chat.Document
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Size() > l.maxFileSize {
			logger.Info("Load: skipping large file", "path", match, "size", info.Size())
			continue
		}
		doc, err := l.read(match)
		if err != nil {
			return nil, err
		}
		doc.Metadata[MetadataModTime] = info.ModTime().UTC().Format(time.RFC3339)
		docs = append(docs, doc)
	}
	logger.Info("Load: succeeded", "documents", len(docs))
	return docs, nil
}

func (l *FSLoader) read(path string) (chat.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return chat.Document{}, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, l.maxFileSize+1))
	if err != nil {
		return chat.Document{}, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if int64(len(data)) > l.maxFileSize {
		return chat.Document{}, fmt.Errorf("%w: %s", ErrObjectTooLarge, path)
	}
	rel, err := filepath.Rel(l.basePath, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return chat.Document{
		ID:       rel,
		Content:  string(data),
		Metadata: map[string]any{MetadataSource: "file://" + path},
	}, nil
}
