package eventjournal

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
)

// S3Archiver uploads rolled-over journal files to S3-compatible object
// storage once they stop accepting new records, and records the archive
// in Postgres for operator auditing.
type S3Archiver struct {
	s3Client   *s3.Client
	bucketName string
	db         *pgxpool.Pool
}

// ArchiverConfig configures the S3-compatible endpoint and bucket.
type ArchiverConfig struct {
	BucketName      string
	Region          string
	Endpoint        string // non-empty for MinIO/Supabase-style S3-compatible endpoints
	AccessKeyID     string
	SecretAccessKey string
	DB              *pgxpool.Pool
}

// ArchiveMetadata records the result of archiving one journal file.
type ArchiveMetadata struct {
	JournalFile   string    `json:"journal_file"`
	ArchiveDate   time.Time `json:"archive_date"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	Checksum      string    `json:"checksum"`
	S3Key         string    `json:"s3_key"`
}

// NewS3Archiver builds the S3 client from cfg.
func NewS3Archiver(cfg ArchiverConfig) (*S3Archiver, error) {
	var awsConfig aws.Config
	var err error

	if cfg.Endpoint != "" {
		awsConfig, err = config.LoadDefaultConfig(context.TODO(),
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)),
			config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:               cfg.Endpoint,
						SigningRegion:     cfg.Region,
						HostnameImmutable: true,
					}, nil
				},
			)),
		)
	} else {
		awsConfig, err = config.LoadDefaultConfig(context.TODO(),
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("eventjournal: load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{s3Client: s3Client, bucketName: cfg.BucketName, db: cfg.DB}, nil
}

// ArchiveFile uploads the journal file at path to S3 and returns its
// archive metadata. Called once a file has rolled over and will never
// receive another Append.
func (a *S3Archiver) ArchiveFile(ctx context.Context, path string) (*ArchiveMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("eventjournal: read %s: %w", path, err)
	}

	checksum := checksumOf(data)
	key := archiveKey(filepath.Base(path))

	if _, err := a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"archived-by": "eventjournal",
			"archived-at": time.Now().Format(time.RFC3339),
		},
	}); err != nil {
		return nil, fmt.Errorf("eventjournal: s3 upload: %w", err)
	}

	meta := &ArchiveMetadata{
		JournalFile:   filepath.Base(path),
		ArchiveDate:   time.Now(),
		FileSizeBytes: int64(len(data)),
		Checksum:      checksum,
		S3Key:         key,
	}
	log.Printf("[eventjournal] archived %s: %d bytes, key=%s", meta.JournalFile, meta.FileSizeBytes, meta.S3Key)
	return meta, nil
}

// VerifyArchive downloads the archived copy and compares its checksum
// against metadata, detecting silent corruption or truncation in transit.
func (a *S3Archiver) VerifyArchive(ctx context.Context, metadata *ArchiveMetadata) error {
	result, err := a.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(metadata.S3Key),
	})
	if err != nil {
		return fmt.Errorf("eventjournal: s3 download: %w", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return fmt.Errorf("eventjournal: read s3 object: %w", err)
	}
	if got := checksumOf(buf.Bytes()); got != metadata.Checksum {
		return fmt.Errorf("eventjournal: checksum mismatch for %s: expected %s, got %s", metadata.S3Key, metadata.Checksum, got)
	}
	return nil
}

// LogArchive records the archive in Postgres for operator auditing.
func (a *S3Archiver) LogArchive(ctx context.Context, metadata *ArchiveMetadata) error {
	_, err := a.db.Exec(ctx, `
		INSERT INTO journal_archive_log (
			journal_file, archive_date, archive_location, file_size_bytes, checksum, status
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		metadata.JournalFile,
		metadata.ArchiveDate,
		fmt.Sprintf("s3://%s/%s", a.bucketName, metadata.S3Key),
		metadata.FileSizeBytes,
		metadata.Checksum,
		"archived",
	)
	if err != nil {
		return fmt.Errorf("eventjournal: log archive: %w", err)
	}
	return nil
}

func checksumOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// archiveKey lays archived journal files out by day for lifecycle-policy
// friendliness: event-journal-archive/YYYY/MM/DD/<file>.
func archiveKey(fileName string) string {
	now := time.Now()
	return fmt.Sprintf("event-journal-archive/%04d/%02d/%02d/%s", now.Year(), now.Month(), now.Day(), fileName)
}
