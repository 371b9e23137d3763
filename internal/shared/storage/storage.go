// Package storage grava as evidências das Tasks (screenshots, PDF e manifesto)
// em disco local ou num bucket MinIO/S3.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Store grava e lê objetos; Put devolve o caminho persistido
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Options escolhe e configura o driver
type Options struct {
	Driver         string // "local" | "minio"
	Dir            string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// New monta o driver configurado
func New(ctx context.Context, opts Options, log *zap.Logger) (Store, error) {
	switch opts.Driver {
	case "", "local":
		return NewLocal(opts.Dir)
	case "minio":
		return NewMinio(ctx, opts, log)
	}
	return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
}

// EvidenceDir é o diretório da Task: tasks/{task}-{bet}-{criação em ms}
func EvidenceDir(taskID, betID int64, createdAt time.Time) string {
	return fmt.Sprintf("tasks/%d-%d-%d", taskID, betID, createdAt.UnixMilli())
}

// Key junta partes num caminho relativo, sem ".." escapando da raiz
func Key(parts ...string) string {
	k := path.Clean(path.Join(parts...))
	k = strings.TrimPrefix(k, "/")
	for strings.HasPrefix(k, "../") {
		k = strings.TrimPrefix(k, "../")
	}
	return k
}
