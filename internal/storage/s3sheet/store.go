// Package s3sheet хранит коллекцию записей каждой identity отдельным объектом S3 в виде таблицы:
// строка заголовка и строки значений. Так устроен «лист» исходного трекера, строки читаются по заголовку.
package s3sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/airdroptracker/internal/config"
	"github.com/airdroptracker/internal/logger"
	"github.com/airdroptracker/internal/model"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// objectAPI - часть s3.Client, которой пользуется Store.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// sheet - содержимое объекта.
type sheet struct {
	Header    []string   `json:"header"`
	Rows      [][]string `json:"rows"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Store struct {
	api    objectAPI
	bucket string
	prefix string
}

// New создаёт клиент S3 (AWS или MinIO по BaseEndpoint).
func New(ctx context.Context, cfg config.S3Config) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3sheet: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return newStore(client, cfg.Bucket, cfg.Prefix), nil
}

func newStore(api objectAPI, bucket, prefix string) *Store {
	return &Store{api: api, bucket: bucket, prefix: prefix}
}

func (s *Store) key(identity string) string {
	return s.prefix + identity + ".json"
}

// Load читает лист identity. Нет объекта - пустая коллекция.
func (s *Store) Load(ctx context.Context, identity string) ([]model.Record, error) {
	defer logger.DeferLogDuration("s3sheet.Load", time.Now())()
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(identity)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return []model.Record{}, nil
		}
		return nil, fmt.Errorf("s3sheet.Load: %w", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3sheet.Load: read: %w", err)
	}
	var sh sheet
	if err := json.Unmarshal(data, &sh); err != nil {
		return nil, fmt.Errorf("s3sheet.Load: decode: %w", err)
	}
	records := make([]model.Record, 0, len(sh.Rows))
	for _, row := range sh.Rows {
		if isBlank(row) {
			continue
		}
		records = append(records, model.RecordFromRow(sh.Header, row))
	}
	return records, nil
}

// Save перезаписывает лист identity целиком.
func (s *Store) Save(ctx context.Context, identity string, records []model.Record) error {
	defer logger.DeferLogDuration("s3sheet.Save", time.Now())()
	sh := sheet{Header: model.Columns, Rows: make([][]string, 0, len(records)), UpdatedAt: time.Now().UTC()}
	for _, r := range records {
		sh.Rows = append(sh.Rows, r.Row())
	}
	data, err := json.Marshal(sh)
	if err != nil {
		return fmt.Errorf("s3sheet.Save: encode: %w", err)
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(identity)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3sheet.Save: %w", err)
	}
	return nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
