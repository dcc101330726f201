package documentstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/config"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/utils"
)

const (
	pointerPrefix     = ".ids"
	metaLocation      = "location"
	metaFileName      = "file-name"
	deleteObjectsPage = 1000
)

// S3API is the subset of the S3 client used by S3Store
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps documents in an S3 compatible bucket.
//
// A document lives at <folder>/<itemID>/<fileName>. A pointer object at
// .ids/<itemID> records its current location so documents can be addressed
// by id after they move. Folders are zero byte "<path>/" marker objects and
// their id is their path.
type S3Store struct {
	client  S3API
	bucket  string
	root    string
	timeout time.Duration
	logger  logrus.FieldLogger
}

// NewS3Store creates a document store from configuration
func NewS3Store(ctx context.Context, cfg *config.DocumentStoreConfig, logger logrus.FieldLogger) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3StoreWithClient(client, cfg.Bucket, cfg.RootPath, cfg.CallTimeout, logger), nil
}

// NewS3StoreWithClient creates a document store from an existing client
func NewS3StoreWithClient(client S3API, bucket, root string, timeout time.Duration, logger logrus.FieldLogger) *S3Store {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &S3Store{
		client:  client,
		bucket:  bucket,
		root:    cleanPath(root),
		timeout: timeout,
		logger:  logger,
	}
}

// GetDriveItemByPath resolves a folder by its path
func (s *S3Store) GetDriveItemByPath(ctx context.Context, itemPath string) (*DriveItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	itemPath = cleanPath(itemPath)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.folderKey(itemPath)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve %s: %w", itemPath, err)
	}

	return &DriveItem{
		ID:       itemPath,
		Name:     path.Base(itemPath),
		Path:     itemPath,
		IsFolder: true,
	}, nil
}

// AddNewFolder creates a folder marker under parentPath
func (s *S3Store) AddNewFolder(ctx context.Context, parentPath, name string) (*DriveItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	folderPath := cleanPath(path.Join(parentPath, name))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.folderKey(folderPath)),
		Body:          strings.NewReader(""),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create folder %s: %w", folderPath, err)
	}

	s.logger.WithField("path", folderPath).Debug("Folder created")
	return &DriveItem{
		ID:       folderPath,
		Name:     path.Base(folderPath),
		Path:     folderPath,
		IsFolder: true,
	}, nil
}

// UploadDocument stores a new document in a folder and returns its item
func (s *S3Store) UploadDocument(ctx context.Context, folderID, fileName string, body io.Reader, size int64) (*DriveItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	itemID := utils.NewID()
	fileName = path.Base(fileName)
	key := s.objectKey(folderID, itemID, fileName)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		Metadata:      map[string]string{metaFileName: fileName},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", fileName, err)
	}

	if err := s.writePointer(ctx, itemID, key, fileName); err != nil {
		return nil, err
	}

	return &DriveItem{
		ID:   itemID,
		Name: fileName,
		Path: path.Join(cleanPath(folderID), itemID, fileName),
		Size: size,
	}, nil
}

// MoveItemsToFolder relocates documents into the destination folder. It stops
// at the first failure.
func (s *S3Store) MoveItemsToFolder(ctx context.Context, itemIDs []string, destFolderID string) error {
	for _, itemID := range itemIDs {
		if err := s.moveItem(ctx, itemID, destFolderID); err != nil {
			return fmt.Errorf("failed to move item %s: %w", itemID, err)
		}
	}
	return nil
}

func (s *S3Store) moveItem(ctx context.Context, itemID, destFolderID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	location, fileName, err := s.readPointer(ctx, itemID)
	if err != nil {
		return err
	}

	dest := s.objectKey(destFolderID, itemID, fileName)
	if dest == location {
		return nil
	}

	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dest),
		CopySource: aws.String(copySource(s.bucket, location)),
	})
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	if err := s.writePointer(ctx, itemID, dest, fileName); err != nil {
		return err
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(location),
	}); err != nil {
		s.logger.WithError(err).WithField("item_id", itemID).Warn("Failed to remove source object after move")
	}
	return nil
}

// DeleteDocumentByID removes a document. Deleting an unknown id succeeds.
func (s *S3Store) DeleteDocumentByID(ctx context.Context, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	location, _, err := s.readPointer(ctx, itemID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, key := range []string{location, s.pointerKey(itemID)} {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

// DeleteFolder removes a folder with everything under it
func (s *S3Store) DeleteFolder(ctx context.Context, folderPath string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prefix := s.folderKey(cleanPath(folderPath))
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []types.ObjectIdentifier
	seen := map[string]bool{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", folderPath, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			keys = append(keys, types.ObjectIdentifier{Key: aws.String(key)})
			itemID, ok := itemIDFromKey(strings.TrimPrefix(key, prefix))
			if !ok || seen[itemID] {
				continue
			}
			seen[itemID] = true

			// a pointer is only dropped while it still points into this folder
			location, _, err := s.readPointer(ctx, itemID)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if strings.HasPrefix(location, prefix) {
				keys = append(keys, types.ObjectIdentifier{Key: aws.String(s.pointerKey(itemID))})
			}
		}
	}

	for start := 0; start < len(keys); start += deleteObjectsPage {
		end := min(start+deleteObjectsPage, len(keys))
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: keys[start:end], Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", folderPath, err)
		}
		if len(out.Errors) > 0 {
			return fmt.Errorf("failed to delete %d objects under %s: %s",
				len(out.Errors), folderPath, aws.ToString(out.Errors[0].Message))
		}
	}

	s.logger.WithFields(logrus.Fields{"path": folderPath, "objects": len(keys)}).Debug("Folder deleted")
	return nil
}

func (s *S3Store) readPointer(ctx context.Context, itemID string) (string, string, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.pointerKey(itemID)),
	})
	if err != nil {
		if isNotFound(err) {
			return "", "", ErrNotFound
		}
		return "", "", fmt.Errorf("failed to look up item %s: %w", itemID, err)
	}
	location := out.Metadata[metaLocation]
	if location == "" {
		return "", "", ErrNotFound
	}
	return location, out.Metadata[metaFileName], nil
}

func (s *S3Store) writePointer(ctx context.Context, itemID, location, fileName string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.pointerKey(itemID)),
		Body:          strings.NewReader(""),
		ContentLength: aws.Int64(0),
		Metadata:      map[string]string{metaLocation: location, metaFileName: fileName},
	})
	if err != nil {
		return fmt.Errorf("failed to record location of item %s: %w", itemID, err)
	}
	return nil
}

func (s *S3Store) prefixed(p string) string {
	if s.root == "" {
		return p
	}
	return s.root + "/" + p
}

func (s *S3Store) folderKey(folderPath string) string {
	return s.prefixed(folderPath) + "/"
}

func (s *S3Store) objectKey(folderID, itemID, fileName string) string {
	return s.prefixed(path.Join(cleanPath(folderID), itemID, fileName))
}

func (s *S3Store) pointerKey(itemID string) string {
	return s.prefixed(path.Join(pointerPrefix, itemID))
}

// itemIDFromKey extracts the item id from a "<...>/<itemID>/<fileName>" key
func itemIDFromKey(rel string) (string, bool) {
	parts := strings.Split(rel, "/")
	if len(parts) < 2 {
		return "", false
	}
	candidate := parts[len(parts)-2]
	if !utils.IsGeneratedID(candidate) {
		return "", false
	}
	return candidate, true
}

func cleanPath(p string) string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "." {
		return ""
	}
	return p
}

func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return bucket + "/" + strings.Join(segments, "/")
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
