package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"catalog-admin/internal/admin"
)

// s3API is the subset of the S3 client the archive uses.
type s3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Archive stores packages in a bucket using the same content/ and index/
// layout as FileSystemArchive, below an optional key prefix.
type S3Archive struct {
	client   s3API
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ admin.Archive = (*S3Archive)(nil)

// S3Options configures NewS3Archive.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // optional, for S3-compatible stores
	AccessKey string // optional; the default credential chain is used when empty
	SecretKey string
}

// NewS3Archive loads the AWS configuration and creates an archive client.
func NewS3Archive(ctx context.Context, opts S3Options) (*S3Archive, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 archive requires a bucket")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Archive(client, opts.Bucket, opts.Prefix), nil
}

func newS3Archive(client s3API, bucket, prefix string) *S3Archive {
	return &S3Archive{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
	}
}

func (a *S3Archive) key(parts ...string) string {
	if a.prefix == "" {
		return path.Join(parts...)
	}
	return path.Join(append([]string{a.prefix}, parts...)...)
}

// Put uploads the package content followed by its index entry. The content
// is buffered so the checksum can be verified before anything is written.
func (a *S3Archive) Put(pkg admin.ArchivedPackage, r io.Reader) error {
	if !validChecksum(pkg.Checksum) {
		return fmt.Errorf("invalid checksum %q", pkg.Checksum)
	}
	vr := newVerifyingReader(r)
	data, err := io.ReadAll(vr)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if err := vr.check(pkg); err != nil {
		return err
	}
	pkg.Size = int64(len(data))

	ctx := context.Background()
	contentKey := a.key("content", pkg.Checksum)
	exists, err := a.exists(ctx, contentKey)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(contentKey),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/vnd.android.package-archive"),
		}); err != nil {
			return fmt.Errorf("uploading %s: %w", contentKey, err)
		}
	}

	entry, err := encodeIndex(pkg)
	if err != nil {
		return err
	}
	indexKey := a.key("index", pkg.Checksum+".json")
	if _, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(indexKey),
		Body:        bytes.NewReader(entry),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("uploading %s: %w", indexKey, err)
	}
	return nil
}

func (a *S3Archive) exists(ctx context.Context, key string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", key, err)
}

func (a *S3Archive) Get(checksum string, w io.Writer) error {
	if !validChecksum(checksum) {
		return fmt.Errorf("invalid checksum %q", checksum)
	}
	key := a.key("content", checksum)
	out, err := a.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return fmt.Errorf("package not found: %s", checksum)
		}
		return fmt.Errorf("fetching %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

func (a *S3Archive) List() ([]admin.ArchivedPackage, error) {
	ctx := context.Background()
	prefix := a.key("index") + "/"

	var out []admin.ArchivedPackage
	var token *string
	for {
		page, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(a.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("listing archive index: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			pkg, err := a.readIndex(ctx, key)
			if err != nil {
				return nil, err
			}
			out = append(out, pkg)
		}
		if !aws.ToBool(page.IsTruncated) {
			break
		}
		token = page.NextContinuationToken
	}
	newestFirst(out)
	return out, nil
}

func (a *S3Archive) readIndex(ctx context.Context, key string) (admin.ArchivedPackage, error) {
	obj, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return admin.ArchivedPackage{}, fmt.Errorf("fetching %s: %w", key, err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return admin.ArchivedPackage{}, fmt.Errorf("reading %s: %w", key, err)
	}
	pkg, err := decodeIndex(data)
	if err != nil {
		return pkg, fmt.Errorf("%s: %w", key, err)
	}
	return pkg, nil
}

// ValidateSetup checks that the bucket is reachable with the configured credentials.
func (a *S3Archive) ValidateSetup() error {
	if _, err := a.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	}); err != nil {
		return fmt.Errorf("archive bucket %s not accessible: %w", a.bucket, err)
	}
	return nil
}
