package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"vaultScope/internal/model"
)

const maxLineSize = 8 << 20

// JsonlStorage appends records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// Path returns the output file.
func (s *JsonlStorage) Path() string { return s.path }

// PutSnapshots appends a batch of vault snapshots as JSON lines.
func (s *JsonlStorage) PutSnapshots(snaps []model.VaultSnapshot) error {
	items := make([]any, len(snaps))
	for i := range snaps {
		items[i] = snaps[i]
	}
	return s.appendLines(items)
}

// PutFetchErrors appends a batch of fetch errors as JSON lines.
func (s *JsonlStorage) PutFetchErrors(errs []model.FetchError) error {
	items := make([]any, len(errs))
	for i := range errs {
		items[i] = errs[i]
	}
	return s.appendLines(items)
}

func (s *JsonlStorage) appendLines(items []any) error {
	if len(items) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, item := range items {
		line, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

// ReadSnapshots loads every snapshot line of a JSONL file. Blank lines are skipped.
func ReadSnapshots(path string) ([]model.VaultSnapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshots: %w", err)
	}
	defer file.Close()

	var out []model.VaultSnapshot
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var snap model.VaultSnapshot
		if err := json.Unmarshal([]byte(text), &snap); err != nil {
			return nil, fmt.Errorf("parse snapshot line %d: %w", line, err)
		}
		out = append(out, snap)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read snapshots: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("no snapshots in " + path)
	}
	return out, nil
}

// Latest keeps the last snapshot per address, in order of first appearance.
func Latest(snaps []model.VaultSnapshot) []model.VaultSnapshot {
	index := make(map[string]int, len(snaps))
	out := make([]model.VaultSnapshot, 0, len(snaps))
	for _, snap := range snaps {
		key := strings.ToLower(snap.Address)
		if i, ok := index[key]; ok {
			out[i] = snap
			continue
		}
		index[key] = len(out)
		out = append(out, snap)
	}
	return out
}

// ForCluster keeps the snapshots fetched for cluster, plus untagged ones. An empty cluster
// keeps everything.
func ForCluster(snaps []model.VaultSnapshot, cluster string) []model.VaultSnapshot {
	cluster = strings.TrimSpace(cluster)
	if cluster == "" {
		return snaps
	}
	out := make([]model.VaultSnapshot, 0, len(snaps))
	for _, snap := range snaps {
		if snap.Cluster == "" || strings.EqualFold(snap.Cluster, cluster) {
			out = append(out, snap)
		}
	}
	return out
}
