package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Minio grava evidências num bucket; Put devolve "bucket/chave"
type Minio struct {
	client *miniogo.Client
	bucket string
	log    *zap.Logger
}

// NewMinio conecta e cria o bucket se ainda não existir
func NewMinio(ctx context.Context, opts Options, log *zap.Logger) (*Minio, error) {
	client, err := miniogo.New(opts.MinioEndpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(opts.MinioAccessKey, opts.MinioSecretKey, ""),
		Secure: opts.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, opts.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.MinioBucket, miniogo.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.MinioBucket, err)
		}
		log.Info("evidence bucket created", zap.String("bucket", opts.MinioBucket))
	}
	return &Minio{client: client, bucket: opts.MinioBucket, log: log}, nil
}

func (m *Minio) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = Key(key)
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		miniogo.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	m.log.Debug("evidence uploaded", zap.String("key", key), zap.Int("size_bytes", len(data)))
	return m.bucket + "/" + key, nil
}

// Get aceita a chave ou o "bucket/chave" devolvido por Put
func (m *Minio) Get(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimPrefix(key, m.bucket+"/")
	obj, err := m.client.GetObject(ctx, m.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}
