package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"wasgate/pkg/logger"
)

// MaxFileSize é o limite por arquivo enviado ao bucket
const MaxFileSize int64 = 10 << 20 // 10 MiB

// ObjectStore encapsula o cliente MinIO sobre um único bucket privado
type ObjectStore struct {
	client *minio.Client
	bucket string
	logger logger.Logger
}

// Options configura a conexão com o object store
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// NewObjectStore cria o adaptador de object storage
func NewObjectStore(opts Options, log logger.Logger) (*ObjectStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &ObjectStore{
		client: client,
		bucket: opts.Bucket,
		logger: log.WithComponent("object-store"),
	}, nil
}

// EnsureBucket cria o bucket se ainda não existir
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}

	s.logger.WithField("bucket", s.bucket).Info().Msg("Bucket created")
	return nil
}

// Upload envia um arquivo local para o caminho de objeto informado
func (s *ObjectStore) Upload(ctx context.Context, objectName, filePath string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, objectName, filePath, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// Download baixa um objeto para o caminho local informado
func (s *ObjectStore) Download(ctx context.Context, objectName, filePath string) error {
	err := s.client.FGetObject(ctx, s.bucket, objectName, filePath, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", objectName, err)
	}
	return nil
}

// ListPrefix lista os nomes de objetos sob um prefixo
func (s *ObjectStore) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list prefix %s: %w", prefix, obj.Err)
		}
		names = append(names, obj.Key)
	}
	return names, nil
}

// RemovePrefix remove todos os objetos sob um prefixo
func (s *ObjectStore) RemovePrefix(ctx context.Context, prefix string) error {
	names, err := s.ListPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}
