package s3

//go:generate go run go.uber.org/mock/mockgen -source=./s3.go -destination=./mocks/s3_mock.go -package=mocks

import (
	"context"
	"fmt"
	"mime/multipart"
	"path"
	"strings"

	"meetroom/config"
	"meetroom/infras/otel"
	"meetroom/shared/constant"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

const (
	otelAttrObjectKey = "object_key"
	otelAttrBucket    = "bucket"
	otelAttrSize      = "size"

	// R2 and MinIO ignore the region but the SDK refuses to sign without one.
	region = "auto"
)

// S3 stores room photos in an S3 compatible bucket and hands back their public URL.
type S3 interface {
	UploadFile(ctx context.Context, bucketName, directory string, file multipart.File, fileHeader *multipart.FileHeader, fileName string) (url string, err error)
	DeleteFile(ctx context.Context, bucketName, directory, objectName string) error
	GetObjectNameFromURL(bucketName, url string) (objectName string)
}

type s3Impl struct {
	client *s3.Client
	cfg    *config.Config
	otel   otel.Otel
}

func New(cfg *config.Config, otel otel.Otel) S3 {
	s3Cfg := cfg.External.S3

	awsCfg, err := awsConfig.LoadDefaultConfig(
		context.Background(),
		awsConfig.WithRegion(region),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s3Cfg.AccessKeyID, s3Cfg.SecretAccessKey, "")),
	)
	if err != nil {
		log.Error().Err(err).Msg("Error loading AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3Cfg.APIEndpoint != "" {
			o.BaseEndpoint = aws.String(s3Cfg.APIEndpoint)
		}

		o.UsePathStyle = true
	})

	return &s3Impl{client: client, cfg: cfg, otel: otel}
}

func (svc *s3Impl) bucket(name string) string {
	if name == "" {
		return svc.cfg.External.S3.BucketName
	}

	return name
}

// UploadFile streams the multipart body straight to the bucket. The part is seekable, so
// the SDK can compute its checksum without buffering the whole photo in memory.
func (svc *s3Impl) UploadFile(ctx context.Context, bucketName, directory string, file multipart.File, fileHeader *multipart.FileHeader, fileName string) (url string, err error) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelS3ScopeName, constant.OtelS3ScopeName+".UploadFile")
	defer scope.End()
	defer scope.TraceIfError(&err)

	bucketName = svc.bucket(bucketName)
	objectKey := path.Join(directory, fileName)

	scope.SetAttributes(map[string]any{
		otelAttrObjectKey: objectKey,
		otelAttrBucket:    bucketName,
		otelAttrSize:      fileHeader.Size,
	})

	_, err = svc.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucketName),
		Key:           aws.String(objectKey),
		Body:          file,
		ContentType:   aws.String(fileHeader.Header.Get(constant.RequestHeaderContentType)),
		ContentLength: aws.Int64(fileHeader.Size),
	})
	if err != nil {
		return constant.Empty, fmt.Errorf("failed to upload %s to S3: %w", objectKey, err)
	}

	return svc.publicURL(objectKey), nil
}

func (svc *s3Impl) DeleteFile(ctx context.Context, bucketName, directory, objectName string) (err error) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelS3ScopeName, constant.OtelS3ScopeName+".DeleteFile")
	defer scope.End()
	defer scope.TraceIfError(&err)

	bucketName = svc.bucket(bucketName)
	objectKey := path.Join(directory, objectName)

	scope.SetAttributes(map[string]any{
		otelAttrObjectKey: objectKey,
		otelAttrBucket:    bucketName,
	})

	_, err = svc.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from S3: %w", objectKey, err)
	}

	return nil
}

// GetObjectNameFromURL recovers the object name (without directory) from a URL produced by
// UploadFile. URLs that point elsewhere yield an empty name.
func (svc *s3Impl) GetObjectNameFromURL(bucketName, url string) string {
	return objectName(svc.cfg.External.S3.PublicDomain, svc.cfg.External.S3.APIEndpoint, svc.bucket(bucketName), url)
}

func (svc *s3Impl) publicURL(objectKey string) string {
	return strings.TrimSuffix(svc.cfg.External.S3.PublicDomain, "/") + "/" + objectKey
}

func objectName(publicDomain, apiEndpoint, bucketName, url string) string {
	prefixes := []string{
		strings.TrimSuffix(apiEndpoint, "/") + "/" + bucketName + "/",
		strings.TrimSuffix(publicDomain, "/") + "/",
	}

	for _, prefix := range prefixes {
		if prefix == "/" {
			continue
		}

		if key, ok := strings.CutPrefix(url, prefix); ok && key != "" {
			return path.Base(key)
		}
	}

	return constant.Empty
}
