package storage

import (
	"bytes"
	"context"
	"fmt"
	"go_draft_backend/config"
	"go_draft_backend/pkg/logging"
	"go_draft_backend/utils"
	"time"

	"github.com/minio/minio-go/v7"
)

type Service struct {
	Client           *minio.Client
	Config           *minio.Options
	Bucket           string
	StorageType      string
	FileKeyGenerator *utils.FileKeyGenerator
}

func InitStorageService(cfg *config.Config) (*Service, error) {
	// bucket
	var minioClient *minio.Client
	var err error

	// local vs s3
	switch cfg.StorageType {
	case "minio":
		minioClient, err = utils.CreateMinIOClient(cfg)
	case "s3":
		minioClient, err = utils.CreateS3Client(cfg)
	default:
		logging.Logger.Error("fail InitStorageService, type error", "error", err)
		return nil, err
	}
	if err != nil {
		logging.Logger.Error("fail InitStorageService", "error", err)
		return nil, err
	}
	keyGenerator := utils.NewFileKeyGenerator("datafiles")
	ss := &Service{
		Client:           minioClient,
		Config:           &minio.Options{Region: cfg.BucketRegion},
		Bucket:           cfg.BucketName,
		StorageType:      cfg.StorageType,
		FileKeyGenerator: keyGenerator,
	}
	if err := ss.EnsureBucketExists(); err != nil {
		logging.Logger.Error("fail InitStorageService", "error", err)
		return nil, err
	}
	logging.Logger.Info("Storage service initialized",
		"type", cfg.StorageType,
		"bucket", cfg.BucketName,
		"region", cfg.BucketRegion,
	)

	return ss, nil
}
func (ss *Service) EnsureBucketExists() error {
	ctx := context.Background()
	exists, err := ss.Client.BucketExists(ctx, ss.Bucket)
	if err != nil {
		logging.Logger.Error("fail ensureBucketExists", "error", err)
		return err
	}
	if exists {
		logging.Logger.Info("Bucket already exists")
		return nil
	}
	err = ss.Client.MakeBucket(ctx, ss.Bucket, minio.MakeBucketOptions{
		Region: ss.Config.Region,
	})
	if err != nil {
		if ss.StorageType == "s3" {
			logging.Logger.Warn("Could not create S3 bucket (might exist or no permission)",
				"bucket", ss.Bucket, "error", err)
			return nil
		}
		logging.Logger.Error("fail ensureBucketExists", "error", err)
		return err
	}
	logging.Logger.Info("Bucket created successfully")
	return nil
}

// UploadObject 服务端直传，归档随生成请求上传的数据文件。
// 返回对象 key，供任务元数据引用。
func (ss *Service) UploadObject(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	fileKey := ss.FileKeyGenerator.GenerateFileKey(filename)
	_, err := ss.Client.PutObject(ctx, ss.Bucket, fileKey,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		logging.Logger.Error("fail UploadObject", "error", err)
		return "", err
	}
	return fileKey, nil
}

// GeneratePresignedGetDownload 给归档文件签一个限时下载地址
func (ss *Service) GeneratePresignedGetDownload(ctx context.Context, fileKey string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("expiration error")
	}
	presignedURL, err := ss.Client.PresignedGetObject(ctx, ss.Bucket, fileKey, ttl, nil)
	if err != nil {
		logging.Logger.Error("fail GeneratePresignedGetDownload", "error", err)
		return "", err
	}
	return presignedURL.String(), nil
}

func (ss *Service) RemoveObject(ctx context.Context, fileKey string) error {
	return ss.Client.RemoveObject(ctx, ss.Bucket, fileKey, minio.RemoveObjectOptions{})
}

func (ss *Service) FileExists(ctx context.Context, fileKey string) (bool, error) {
	_, err := ss.Client.StatObject(ctx, ss.Bucket, fileKey, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
