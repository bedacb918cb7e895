// Package archive persists JSON snapshots of analysis output to a blob
// store so results survive process restarts and cache expiry.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sitescope/sitescope/internal/analysis"
)

const contentTypeJSON = "application/json"

// Store writes analysis snapshots under a common prefix. A nil Store
// disables archiving.
type Store struct {
	blobs  analysis.BlobStore
	prefix string
	clock  analysis.Clock
}

// New builds a Store.
func New(blobs analysis.BlobStore, prefix string, clock analysis.Clock) *Store {
	if prefix == "" {
		prefix = "analyses"
	}
	return &Store{blobs: blobs, prefix: prefix, clock: clock}
}

// SaveResult archives one basic analysis result and returns its URI.
func (s *Store) SaveResult(ctx context.Context, result analysis.Result) (string, error) {
	if s == nil {
		return "", nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode result snapshot: %w", err)
	}
	stamp := s.clock.Now().UTC().Format("20060102T150405Z")
	path := fmt.Sprintf("%s/%s/%s.json", s.prefix, result.Domain, stamp)
	uri, err := s.blobs.PutObject(ctx, path, contentTypeJSON, data)
	if err != nil {
		return "", fmt.Errorf("archive result: %w", err)
	}
	return uri, nil
}

// SaveJob archives a finished comprehensive job snapshot.
func (s *Store) SaveJob(ctx context.Context, job analysis.Job) (string, error) {
	if s == nil {
		return "", nil
	}
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode job snapshot: %w", err)
	}
	path := fmt.Sprintf("%s/jobs/%s.json", s.prefix, job.ID)
	uri, err := s.blobs.PutObject(ctx, path, contentTypeJSON, data)
	if err != nil {
		return "", fmt.Errorf("archive job: %w", err)
	}
	return uri, nil
}
