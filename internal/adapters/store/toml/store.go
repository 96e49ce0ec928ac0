// Package toml persists pool accounts in a single TOML file, written
// atomically.
package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/LiamVDB1/twitter-api/internal/domain"
	"github.com/LiamVDB1/twitter-api/internal/ports"
)

const (
	configName         = "config"
	configType         = "toml"
	accountsPathKey    = "accounts.path"
	accountsFileMode   = 0o600
	accountsDirMode    = 0o700
	accountsConfigDir  = ".twitterpool"
	accountsConfigFile = "accounts.toml"
	tempFilePattern    = ".accounts-*.toml.tmp"
)

type Store struct {
	accountsPath string
	mu           *sync.RWMutex
}

// One lock per file path, so two stores on the same file serialize.
var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.AccountStore = (*Store)(nil)

// New resolves the accounts file path from the viper config (or the
// override, when non-empty) and returns a store bound to it.
func New(cfg *viper.Viper, overridePath string) (*Store, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	accountsPath := overridePath
	if accountsPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}

		defaultPath := filepath.Join(homeDir, accountsConfigDir, accountsConfigFile)

		cfg.SetConfigName(configName)
		cfg.SetConfigType(configType)
		cfg.AddConfigPath(filepath.Join(homeDir, accountsConfigDir))
		cfg.SetDefault(accountsPathKey, defaultPath)

		if err := cfg.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}

		accountsPath = cfg.GetString(accountsPathKey)
	}
	if accountsPath == "" {
		return nil, errors.New("accounts path is empty")
	}

	accountsPath, err := filepath.Abs(accountsPath)
	if err != nil {
		return nil, fmt.Errorf("resolve accounts path: %w", err)
	}
	accountsPath = filepath.Clean(accountsPath)

	return &Store{accountsPath: accountsPath, mu: lockForPath(accountsPath)}, nil
}

func (s *Store) LoadAll(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(file.Accounts))
	for _, entry := range file.Accounts {
		accounts = append(accounts, fromSchema(entry))
	}
	return accounts, nil
}

func (s *Store) Upsert(ctx context.Context, account domain.Account) error {
	return s.update(ctx, account, true)
}

func (s *Store) SaveState(ctx context.Context, account domain.Account) error {
	return s.update(ctx, account, false)
}

func (s *Store) update(ctx context.Context, account domain.Account, insert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	encoded := toSchema(account)
	updated := false
	for i := range file.Accounts {
		if file.Accounts[i].Username == encoded.Username {
			file.Accounts[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		if !insert {
			return domain.ErrAccountNotFound
		}
		file.Accounts = append(file.Accounts, encoded)
	}

	return s.writeSchema(file)
}

func (s *Store) Delete(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	kept := file.Accounts[:0]
	for _, entry := range file.Accounts {
		if entry.Username != username {
			kept = append(kept, entry)
		}
	}
	file.Accounts = kept

	return s.writeSchema(file)
}

func (s *Store) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(s.accountsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read accounts file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode accounts file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (s *Store) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.accountsPath), accountsDirMode); err != nil {
		return fmt.Errorf("create accounts directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode accounts file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.accountsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp accounts file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("write temp accounts file: %w", err)
	}
	if err := tempFile.Chmod(accountsFileMode); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("chmod temp accounts file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("close temp accounts file: %w", err)
	}
	if err := os.Rename(tempPath, s.accountsPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("replace accounts file: %w", err)
	}
	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}
	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func epochOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(epoch int64) time.Time {
	if epoch == 0 {
		return time.Time{}
	}
	return time.Unix(epoch, 0)
}
