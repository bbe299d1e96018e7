package banstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mezonai/dosguard/jsonx"
	"github.com/mezonai/dosguard/logx"
	"github.com/mezonai/dosguard/security/banscore"
)

type banListData struct {
	Bans []banscore.BanEntry `json:"bans"`
}

// FileStore keeps the ban list in a JSON file, replaced atomically on save.
type FileStore struct {
	mu       sync.RWMutex
	filePath string
}

func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath}
}

func (fs *FileStore) Save(entries []banscore.BanEntry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if entries == nil {
		entries = []banscore.BanEntry{}
	}
	data := banListData{Bans: entries}

	dir := filepath.Dir(fs.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create ban list directory: %w", err)
	}

	tempPath := fs.filePath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary ban list file: %w", err)
	}

	encoder := jsonx.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode ban list: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temporary ban list file: %w", err)
	}

	if err := os.Rename(tempPath, fs.filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary ban list file: %w", err)
	}

	logx.Info("BANSTORE", fmt.Sprintf("Saved %d bans to %s", len(entries), fs.filePath))
	return nil
}

// Load returns an empty list when the file does not exist yet.
func (fs *FileStore) Load() ([]banscore.BanEntry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	file, err := os.Open(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			logx.Info("BANSTORE", "Ban list file does not exist, starting with empty ban list")
			return []banscore.BanEntry{}, nil
		}
		return nil, fmt.Errorf("failed to open ban list file: %w", err)
	}
	defer file.Close()

	var data banListData
	if err := jsonx.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode ban list: %w", err)
	}
	if data.Bans == nil {
		data.Bans = []banscore.BanEntry{}
	}

	logx.Info("BANSTORE", fmt.Sprintf("Loaded %d bans from %s", len(data.Bans), fs.filePath))
	return data.Bans, nil
}

func (fs *FileStore) Close() error {
	return nil
}

func (fs *FileStore) Path() string {
	return fs.filePath
}
