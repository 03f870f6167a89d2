package project

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"lazy-df-go/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go"
)

type mime string

var (
	MimeCSV     mime = "csv"
	MimeParquet mime = "parquet"
)

// NetworkResource streams one object out of a bucket. CSV readers consume
// Stream sequentially; parquet readers use ReadAt/Seek for ranged reads
// without pulling the whole object down.
type NetworkResource struct {
	client *minio.Client
	bucket string
	key    string

	// raw streaming object for CSV
	stream *minio.Object
	// for clean up-testing
	fileName string
}

func NewStreamReader(fileName string) (*NetworkResource, error) {
	secretes := config.GetConfig().Secretes
	accessKey := secretes.AccessKey
	secretKey := secretes.SecretKey
	endpoint := secretes.EndpointURL
	bucket := secretes.BucketName
	useSSL := true

	client, err := minio.New(endpoint, accessKey, secretKey, useSSL)
	if err != nil {
		return nil, err
	}

	obj, err := client.GetObject(bucket, fileName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}

	return &NetworkResource{
		client:   client,
		bucket:   bucket,
		key:      fileName,
		fileName: fileName,
		stream:   obj, // CSV reads this directly
	}, nil
}

func (n *NetworkResource) Stream() io.Reader {
	return n.stream
}

// ReadAt implements io.ReaderAt for parquet readers
func (n *NetworkResource) ReadAt(p []byte, off int64) (int, error) {
	opts := minio.GetObjectOptions{}
	_ = opts.SetRange(off, off+int64(len(p))-1)

	obj, err := n.client.GetObject(n.bucket, n.key, opts)
	if err != nil {
		return 0, err
	}
	return io.ReadFull(obj, p)
}

func (n *NetworkResource) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		return offset, nil
	case io.SeekEnd:
		// Need to return total object size
		info, err := n.client.StatObject(n.bucket, n.key, minio.StatObjectOptions{})
		if err != nil {
			return 0, fmt.Errorf("failed to stat object: %w", err)
		}
		return info.Size, nil
	default:
		return 0, fmt.Errorf("unsupported seek mode for S3: %d", whence)
	}
}

func (n *NetworkResource) DownloadLocally() (*os.File, error) {
	f, err := os.Create(fmt.Sprintf("%s-%d", n.key, time.Now().UnixNano()))
	if err != nil {
		return nil, err
	}

	// Read entire stream once
	content, err := io.ReadAll(n.stream)
	if err != nil {
		return nil, err
	}

	if _, err := f.Write(content); err != nil {
		return nil, err
	}

	// Rewind so CSV readers can start from beginning
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	return f, nil
}

// BulkDownloader pulls whole objects down in one request. Used when the
// download policy allows materializing the file locally instead of paying
// one round trip per ranged read.
type BulkDownloader struct {
	client *awss3.Client
	bucket string
}

func NewBulkDownloader(ctx context.Context) (*BulkDownloader, error) {
	secretes := config.GetConfig().Secretes
	client := awss3.New(awss3.Options{
		Region:       secretes.Region,
		BaseEndpoint: aws.String("https://" + secretes.EndpointURL),
		UsePathStyle: true,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     secretes.AccessKey,
				SecretAccessKey: secretes.SecretKey,
			}, nil
		}),
	})
	return &BulkDownloader{
		client: client,
		bucket: secretes.BucketName,
	}, nil
}

// Fetch downloads one object, enforcing the configured download policy: a
// disabled policy or an object over the size cap refuses rather than
// silently pulling it anyway.
func (b *BulkDownloader) Fetch(ctx context.Context, key string) ([]byte, error) {
	policy := config.GetConfig().Batch
	if !policy.ShouldDownload {
		return nil, fmt.Errorf("bulk download of %q refused: downloads are disabled by config", key)
	}

	head, err := b.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q before download: %w", key, err)
	}
	maxBytes := int64(policy.MaxDownloadSizeMB) * 1024 * 1024
	if size := aws.ToInt64(head.ContentLength); size > maxBytes {
		return nil, fmt.Errorf("bulk download of %q refused: %d bytes exceeds the %dMB cap",
			key, size, policy.MaxDownloadSizeMB)
	}

	out, err := b.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// FetchToFile writes the object next to the working directory the way
// DownloadLocally does, returning an open handle rewound to the start.
func (b *BulkDownloader) FetchToFile(ctx context.Context, key string) (*os.File, error) {
	content, err := b.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(fmt.Sprintf("%s-%d", key, time.Now().UnixNano()))
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(content); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return f, nil
}
