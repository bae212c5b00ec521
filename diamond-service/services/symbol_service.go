package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"

	"guildhall-backend/shared/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SymbolService stores guild symbol images in MinIO, one folder per
// organization, one object per guild.
type SymbolService struct {
	client     *minio.Client
	bucketName string
}

func NewSymbolService() (*SymbolService, error) {
	cfg := config.GetConfig()

	// Parse endpoint URL to get host
	parsedURL, err := url.Parse(cfg.MinIOServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MinIO endpoint: %v", err)
	}

	endpoint := parsedURL.Host
	useSSL := cfg.MinIOUseSSL

	log.Printf("🔗 Connecting to MinIO: %s (SSL: %v)", endpoint, useSSL)

	// Initialize MinIO client
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIORootUser, cfg.MinIORootPassword, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	service := &SymbolService{
		client:     minioClient,
		bucketName: cfg.MinIOBucketName,
	}

	// Test connection and create bucket if needed
	if err := service.initializeBucket(); err != nil {
		return nil, err
	}

	return service, nil
}

func (s *SymbolService) initializeBucket() error {
	ctx := context.Background()

	log.Printf("🪣 Checking bucket: %s", s.bucketName)

	// Check if bucket exists
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %v", err)
	}

	if !exists {
		// Create bucket
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %v", err)
		}
		log.Printf("✅ MinIO bucket '%s' created successfully", s.bucketName)
	} else {
		log.Printf("✅ MinIO bucket '%s' already exists", s.bucketName)
	}

	return nil
}

// TestConnection lists buckets to verify connectivity
func (s *SymbolService) TestConnection() error {
	ctx := context.Background()

	buckets, err := s.client.ListBuckets(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to MinIO: %v", err)
	}

	log.Printf("✅ MinIO connection successful. Found %d buckets", len(buckets))
	return nil
}

func symbolKey(orgID string, guildID uint64, fileName string) string {
	return fmt.Sprintf("%s/%d/%s", orgID, guildID, fileName)
}

// UploadSymbol stores a guild's symbol image, replacing any previous
// one for the same guild.
func (s *SymbolService) UploadSymbol(ctx context.Context, orgID string, guildID uint64, fileName string, file io.Reader, fileSize int64, contentType string) (string, error) {
	if err := s.removeGuildObjects(ctx, orgID, guildID); err != nil {
		return "", err
	}

	objectKey := symbolKey(orgID, guildID, fileName)
	log.Printf("⬆️ Uploading symbol to: %s/%s (size: %d bytes)", s.bucketName, objectKey, fileSize)

	_, err := s.client.PutObject(ctx, s.bucketName, objectKey, file, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload symbol: %v", err)
	}

	log.Printf("✅ Symbol '%s' uploaded successfully", objectKey)
	return objectKey, nil
}

// DownloadSymbol streams a guild's symbol image.
func (s *SymbolService) DownloadSymbol(ctx context.Context, orgID string, guildID uint64, fileName string) (io.ReadCloser, error) {
	objectKey := symbolKey(orgID, guildID, fileName)

	object, err := s.client.GetObject(ctx, s.bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download symbol: %v", err)
	}
	return object, nil
}

// ListGuildSymbols lists the stored objects for a guild.
func (s *SymbolService) ListGuildSymbols(ctx context.Context, orgID string, guildID uint64) ([]string, error) {
	prefix := fmt.Sprintf("%s/%d/", orgID, guildID)

	var objects []string
	objectCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, object.Err
		}
		objects = append(objects, object.Key)
	}

	return objects, nil
}

// RemoveSymbol removes a guild's stored symbol objects.
func (s *SymbolService) RemoveSymbol(ctx context.Context, orgID string, guildID uint64) error {
	return s.removeGuildObjects(ctx, orgID, guildID)
}

func (s *SymbolService) removeGuildObjects(ctx context.Context, orgID string, guildID uint64) error {
	prefix := fmt.Sprintf("%s/%d/", orgID, guildID)

	objectCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var errs []string
	for object := range objectCh {
		if object.Err != nil {
			errs = append(errs, fmt.Sprintf("list error: %v", object.Err))
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucketName, object.Key, minio.RemoveObjectOptions{}); err != nil {
			errs = append(errs, fmt.Sprintf("failed to delete %s: %v", object.Key, err))
		} else {
			log.Printf("🗑️ Deleted object: %s", object.Key)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to delete some objects: %v", errs)
	}
	return nil
}
