// Пакет предоставляет интерфейс и реализации файлового хранилища для экспортов речей: локальный диск и Minio.
// Поддерживаются сохранение, загрузка, удаление, обход и метаданные объектов.
package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/speechdraft/speechdraft/internal/speechdraft/config"
)

const (
	UploadTries = 3
)

var (
	ErrInvalidName = errors.New("invalid object name")
	ErrNotFound    = errors.New("object not found")

	retryDelay = time.Second * 5
)

type Metadata struct {
	ProjectId string
	ExportId  string
	Format    string
}

type FileInfo struct {
	Name        string
	Size        int64
	ContentType string
	CreatedAt   time.Time
}

func (m Metadata) GetMap() map[string]string {
	meta := make(map[string]string)
	if m.ProjectId != "" {
		meta["projectId"] = m.ProjectId
	}
	if m.ExportId != "" {
		meta["exportId"] = m.ExportId
	}
	if m.Format != "" {
		meta["format"] = m.Format
	}
	return meta
}

type FileStorage interface {
	Save(data []byte, name string, contentType string, metadata *Metadata) error
	SaveReader(reader io.Reader, fileSize int64, name string, contentType string, metadata *Metadata) error
	Load(name string) ([]byte, error)
	LoadReader(name string) (io.ReadCloser, error)
	Delete(name string) error
	Exist(name string) (bool, error)
	ListRoot(fn func(FileInfo) error) error
	GetFileInfo(name string) (*FileInfo, error)
}

// New выбирает Minio, если задан AWS_S3_ENDPOINT_URL, иначе локальную директорию EXPORTS_PATH.
func New(cfg *config.Config) (FileStorage, error) {
	if !cfg.MinioEnabled() {
		slog.Info("Use local file storage", "path", cfg.ExportsPath)
		return NewLocalStorage(cfg.ExportsPath)
	}

	endpoint := cfg.AWSEndpoint
	useSSL := false
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse storage endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}
	slog.Info("Use minio file storage", "endpoint", endpoint, "bucket", cfg.AWSBucketName)
	return NewMinioStorage(endpoint, cfg.AWSAccessKey, cfg.AWSSecretKey, useSSL, cfg.AWSBucketName)
}

func cleanName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") {
		return "", ErrInvalidName
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidName
	}
	return clean, nil
}

type LocalStorage struct {
	rootDir string
}

func NewLocalStorage(rootPath string) (FileStorage, error) {
	if err := os.MkdirAll(rootPath, 0755); err != nil {
		return nil, err
	}
	return &LocalStorage{rootPath}, nil
}

func (s *LocalStorage) filePath(name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.rootDir, filepath.FromSlash(clean)), nil
}

func (s *LocalStorage) Save(data []byte, name string, contentType string, metadata *Metadata) error {
	return s.SaveReader(bytes.NewReader(data), int64(len(data)), name, contentType, metadata)
}

func (s *LocalStorage) SaveReader(reader io.Reader, fileSize int64, name string, contentType string, metadata *Metadata) error {
	p, err := s.filePath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}

	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		os.Remove(p)
		return err
	}
	return f.Close()
}

func (s *LocalStorage) Load(name string) ([]byte, error) {
	p, err := s.filePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *LocalStorage) LoadReader(name string) (io.ReadCloser, error) {
	p, err := s.filePath(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *LocalStorage) Delete(name string) error {
	p, err := s.filePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStorage) Exist(name string) (bool, error) {
	p, err := s.filePath(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *LocalStorage) ListRoot(fn func(FileInfo) error) error {
	return filepath.WalkDir(s.rootDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.rootDir, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(localFileInfo(filepath.ToSlash(rel), info))
	})
}

func (s *LocalStorage) GetFileInfo(name string) (*FileInfo, error) {
	p, err := s.filePath(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	fi := localFileInfo(name, info)
	return &fi, nil
}

func localFileInfo(name string, info fs.FileInfo) FileInfo {
	return FileInfo{
		Name:        name,
		Size:        info.Size(),
		ContentType: mime.TypeByExtension(path.Ext(name)),
		CreatedAt:   info.ModTime(),
	}
}

type MinioStorage struct {
	client     *minio.Client
	bucketName string
}

func (s *MinioStorage) Save(data []byte, name string, contentType string, metadata *Metadata) error {
	return s.SaveReader(bytes.NewReader(data), int64(len(data)), name, contentType, metadata)
}

// SaveReader повторяет загрузку, только если reader умеет перематываться.
func (s *MinioStorage) SaveReader(reader io.Reader, fileSize int64, name string, contentType string, metadata *Metadata) error {
	if _, err := cleanName(name); err != nil {
		return err
	}

	putOptions := minio.PutObjectOptions{ContentType: contentType}
	if metadata != nil {
		putOptions.UserTags = metadata.GetMap()
	}

	seeker, canRetry := reader.(io.Seeker)
	var err error
	for i := range UploadTries {
		_, err = s.client.PutObject(context.Background(),
			s.bucketName,
			name,
			reader,
			fileSize,
			putOptions,
		)
		if err == nil {
			break
		}

		resp := minio.ToErrorResponse(err)
		slog.Error("Upload file to minio", "name", name, "try", i+1, "code", resp.StatusCode, "msg", resp.Message, "err", err)
		if !canRetry {
			break
		}
		if _, serr := seeker.Seek(0, io.SeekStart); serr != nil {
			break
		}
		time.Sleep(retryDelay)
	}
	return err
}

func (s *MinioStorage) Load(name string) ([]byte, error) {
	obj, err := s.LoadReader(name)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, minioError(err)
	}
	return data, nil
}

func (s *MinioStorage) LoadReader(name string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(context.Background(),
		s.bucketName,
		name,
		minio.GetObjectOptions{},
	)
	if err != nil {
		return nil, minioError(err)
	}
	return obj, nil
}

func (s *MinioStorage) Delete(name string) error {
	return s.client.RemoveObject(
		context.Background(),
		s.bucketName,
		name,
		minio.RemoveObjectOptions{},
	)
}

func (s *MinioStorage) Exist(name string) (bool, error) {
	_, err := s.client.StatObject(
		context.Background(),
		s.bucketName,
		name,
		minio.StatObjectOptions{},
	)
	if err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MinioStorage) ListRoot(fn func(info FileInfo) error) error {
	for obj := range s.client.ListObjects(context.Background(), s.bucketName, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return obj.Err
		}
		if err := fn(FileInfo{
			Name:        obj.Key,
			Size:        obj.Size,
			ContentType: obj.ContentType,
			CreatedAt:   obj.LastModified,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *MinioStorage) GetFileInfo(name string) (*FileInfo, error) {
	stat, err := s.client.StatObject(context.Background(), s.bucketName, name, minio.StatObjectOptions{})
	if err != nil {
		return nil, minioError(err)
	}

	return &FileInfo{
		Name:        name,
		Size:        stat.Size,
		ContentType: stat.ContentType,
		CreatedAt:   stat.LastModified,
	}, nil
}

func minioError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}

func NewMinioStorage(endpoint string, accessKeyID string, secretAccessKey string, useSSL bool, bucketName string) (FileStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return nil, err
	}

	if !exists {
		// Create bucket if not exist
		if err := client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStorage{client, bucketName}, nil
}
