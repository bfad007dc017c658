package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"wasgate/pkg/logger"
)

// SessionStorage espelha o diretório de autenticação de cada sessão
// entre o filesystem local e o object store. Os objetos ficam sob o
// prefixo <session_id>/ com o caminho relativo do arquivo.
type SessionStorage struct {
	store       *ObjectStore
	sessionsDir string
	logger      logger.Logger
}

// NewSessionStorage cria o serviço de armazenamento de sessões
func NewSessionStorage(store *ObjectStore, sessionsDir string, log logger.Logger) *SessionStorage {
	return &SessionStorage{
		store:       store,
		sessionsDir: sessionsDir,
		logger:      log.WithComponent("session-storage"),
	}
}

// AuthDir devolve o diretório de autenticação local da sessão
func (s *SessionStorage) AuthDir(sessionID string) string {
	return filepath.Join(s.sessionsDir, sessionID)
}

// Backup envia o diretório de autenticação da sessão para o object store.
// Arquivos acima do limite de tamanho são pulados com aviso.
func (s *SessionStorage) Backup(ctx context.Context, sessionID string) error {
	dir := s.AuthDir(sessionID)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("auth directory not found for session %s: %w", sessionID, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("auth path for session %s is not a directory", sessionID)
	}

	uploaded := 0
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Size() > MaxFileSize {
			s.logger.WithFields(map[string]interface{}{
				"session_id": sessionID,
				"file":       path,
				"size":       fi.Size(),
			}).Warn().Msg("Skipping oversized auth file on backup")
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		objectName := sessionID + "/" + filepath.ToSlash(rel)
		if err := s.store.Upload(ctx, objectName, path); err != nil {
			return err
		}
		uploaded++
		return nil
	})
	if err != nil {
		return fmt.Errorf("backup failed for session %s: %w", sessionID, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"session_id": sessionID,
		"files":      uploaded,
	}).Info().Msg("Session auth directory backed up")
	return nil
}

// Restore baixa o diretório de autenticação da sessão do object store.
// Retorna false quando não há backup, o que significa primeira autenticação.
func (s *SessionStorage) Restore(ctx context.Context, sessionID string) (bool, error) {
	names, err := s.store.ListPrefix(ctx, sessionID+"/")
	if err != nil {
		return false, fmt.Errorf("restore failed for session %s: %w", sessionID, err)
	}
	if len(names) == 0 {
		return false, nil
	}

	dir := s.AuthDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create auth directory for session %s: %w", sessionID, err)
	}

	for _, name := range names {
		rel := strings.TrimPrefix(name, sessionID+"/")
		if rel == "" {
			continue
		}
		local := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			return false, err
		}
		if err := s.store.Download(ctx, name, local); err != nil {
			return false, fmt.Errorf("restore failed for session %s: %w", sessionID, err)
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"session_id": sessionID,
		"files":      len(names),
	}).Info().Msg("Session auth directory restored")
	return true, nil
}

// Delete remove o backup remoto e o diretório local da sessão
func (s *SessionStorage) Delete(ctx context.Context, sessionID string) error {
	if err := s.store.RemovePrefix(ctx, sessionID+"/"); err != nil {
		return fmt.Errorf("failed to delete remote auth tree for session %s: %w", sessionID, err)
	}
	if err := os.RemoveAll(s.AuthDir(sessionID)); err != nil {
		return fmt.Errorf("failed to delete local auth directory for session %s: %w", sessionID, err)
	}
	return nil
}
