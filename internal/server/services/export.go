package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	sc "github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/google/uuid"
)

// ExportLinkValidity is how long the presigned download link stays usable.
const ExportLinkValidity = 15 * time.Minute

var ErrExportsDisabled = errors.New("note export is not configured")

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ExportResult points at a stored snapshot of the caller's notes.
type ExportResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type exportDocument struct {
	UserID     string         `json:"user_id"`
	ExportedAt time.Time      `json:"exported_at"`
	Notes      []*models.Note `json:"notes"`
}

// ExportService snapshots a user's notes as JSON into S3-compatible storage.
type ExportService struct {
	notes  *NoteService
	config *sc.Config
	log    logging.Logger
}

func NewExportService(notes *NoteService, config *sc.Config, log logging.Logger) *ExportService {
	return &ExportService{notes: notes, config: config, log: log.With("module", "export")}
}

// ExportKey builds the object key for a new snapshot of userID's notes.
func ExportKey(userID string, at time.Time) string {
	return fmt.Sprintf("exports/%s/%04d/%02d/%02d/%s.json", userID, at.Year(), at.Month(), at.Day(), uuid.New())
}

func (s *ExportService) clients(ctx context.Context) (*s3.Client, *s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, newS3PresignClient(client), nil
}

// Export writes the caller's notes to the bucket and returns the object key
// with a presigned GET link.
func (s *ExportService) Export(ctx context.Context) (*ExportResult, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if !s.config.ExportsEnabled() {
		return nil, ErrExportsDisabled
	}

	notes, err := s.notes.List(ctx, "")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	body, err := json.Marshal(exportDocument{UserID: userID, ExportedAt: now, Notes: notes})
	if err != nil {
		return nil, fmt.Errorf("error encoding export: %w", err)
	}

	client, presignClient, err := s.clients(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := ExportKey(userID, now)

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return nil, fmt.Errorf("error storing export: %w", err)
	}

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ExportLinkValidity))
	if err != nil {
		return nil, fmt.Errorf("error presigning export: %w", err)
	}

	s.log.Info(ctx, "notes exported", "user_id", userID, "key", key, "count", len(notes))
	return &ExportResult{Key: key, URL: req.URL}, nil
}
