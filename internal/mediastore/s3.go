package mediastore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"neuroscreen/internal/config"
	"neuroscreen/internal/services"
)

// s3API is the slice of the S3 client the store uses, kept narrow so
// tests can stand in a fake.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store serves media references out of an S3 bucket.
type S3Store struct {
	client  s3API
	bucket  string
	prefix  string
	staging string
}

// NewS3 builds an S3-backed store from the media_store config section.
func NewS3(ctx context.Context, cfg config.MediaStore, stagingRoot string) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 media store requires a bucket")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.S3Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client:  s3.NewFromConfig(awsCfg, clientOpts...),
		bucket:  cfg.S3Bucket,
		prefix:  strings.Trim(cfg.S3Prefix, "/"),
		staging: stagingRoot,
	}, nil
}

// Fetch downloads the referenced object, or every object under the
// reference treated as a key prefix, into a fresh staging directory.
func (s *S3Store) Fetch(ctx context.Context, ref string) (*Handle, error) {
	key := s.applyPrefix(ref)

	keys, err := s.resolveKeys(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, services.Wrap(services.ErrUnreadableMedia, "mediastore", "fetch",
			fmt.Sprintf("no objects found for media reference %q", ref), nil)
	}

	dir, err := newStagingDir(s.staging)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, objectKey := range keys {
		dst := filepath.Join(dir, path.Base(objectKey))
		if downloadErr := s.download(ctx, objectKey, dst); downloadErr != nil {
			_ = os.RemoveAll(dir)
			return nil, downloadErr
		}
		paths = append(paths, dst)
	}

	return finishHandle(dir, paths), nil
}

// resolveKeys returns the exact key when an object exists under it, and
// otherwise lists the reference as a prefix.
func (s *S3Store) resolveKeys(ctx context.Context, key string) ([]string, error) {
	listPrefix := key
	if !strings.HasSuffix(listPrefix, "/") {
		listPrefix += "/"
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(strings.TrimSuffix(key, "/")),
	}

	// An imaging series can span more listing pages than one response
	// carries, so follow the continuation token to the end.
	var keys []string
	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "mediastore", "list",
				fmt.Sprintf("list s3 objects bucket=%s prefix=%s", s.bucket, key), err)
		}

		for _, obj := range out.Contents {
			if obj.Key == nil {
				continue
			}
			if *obj.Key == strings.TrimSuffix(key, "/") || strings.HasPrefix(*obj.Key, listPrefix) {
				keys = append(keys, *obj.Key)
			}
		}

		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	return keys, nil
}

func (s *S3Store) download(ctx context.Context, key, dst string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return services.Wrap(services.ErrUnreadableMedia, "mediastore", "fetch",
			fmt.Sprintf("get s3 object bucket=%s key=%s", s.bucket, key), err)
	}
	defer out.Body.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		_ = f.Close()
		return fmt.Errorf("download media: %w", err)
	}
	return f.Close()
}

func (s *S3Store) applyPrefix(ref string) string {
	cleanRef := strings.TrimLeft(ref, "/")
	if s.prefix == "" {
		return cleanRef
	}
	return s.prefix + "/" + cleanRef
}
