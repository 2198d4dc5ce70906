package services

import (
	"bytes"
	"context"
	"fmt"
	"log"

	appconfig "valve-backend/internal/config"
	"valve-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArchiveService copies approved report PDFs to an S3-compatible bucket.
// Archiving is best effort: failures are logged, never surfaced to the
// approver, and the report stays approved either way.
type ArchiveService struct {
	client *s3.Client
	bucket string
}

// NewArchiveService builds the S3 client from the archive config. Returns
// nil when the bucket is not configured, which disables archiving.
func NewArchiveService(cfg *appconfig.Config) *ArchiveService {
	if cfg.Archive.Bucket == "" || cfg.Archive.AccessKey == "" {
		log.Println("[Archive] Not configured, approved reports will not be archived")
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Archive.Region),
	)
	if err != nil {
		log.Printf("[Archive] Failed to load config: %v", err)
		return nil
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Archive.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Archive.Endpoint)
		}
	})

	log.Printf("[Archive] Archiving approved reports to bucket %s", cfg.Archive.Bucket)
	return &ArchiveService{client: client, bucket: cfg.Archive.Bucket}
}

// ArchiveReport renders the report as PDF and uploads it keyed by report
// number
func (s *ArchiveService) ArchiveReport(ctx context.Context, detail *models.ReportDetail) {
	var reportNumber string
	switch detail.ReportType {
	case models.ReportTypeLegacy:
		reportNumber = detail.Legacy.ReportNumber
	default:
		reportNumber = detail.Header.ReportNumber
	}

	data, err := GenerateReportPDF(detail)
	if err != nil {
		log.Printf("[Archive] Generate PDF for %s: %v", reportNumber, err)
		return
	}

	key := fmt.Sprintf("reports/%s.pdf", reportNumber)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		log.Printf("[Archive] Upload %s: %v", key, err)
		return
	}
	log.Printf("[Archive] Uploaded %s", key)
}
