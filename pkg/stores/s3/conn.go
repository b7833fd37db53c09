package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

/*
Conn wraps a MinIO client for any S3-compatible object store.
*/
type Conn struct {
	client *minio.Client
}

func NewConn(endpoint, accessKey, secretKey string, secure bool) (*Conn, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})

	if err != nil {
		return nil, fmt.Errorf("s3: connect %s: %w", endpoint, err)
	}

	return &Conn{client: client}, nil
}

// List returns every object key under prefix, recursively.
func (conn *Conn) List(
	ctx context.Context, bucketName, prefix string,
) ([]string, error) {
	var keys []string

	for object := range conn.client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			log.Error("failed to list objects", "bucket", bucketName, "error", object.Err)
			return keys, object.Err
		}

		keys = append(keys, object.Key)
	}

	return keys, nil
}

// Get reads a whole object into memory.
func (conn *Conn) Get(
	ctx context.Context,
	bucketName string,
	objectKey string,
) (*bytes.Buffer, error) {
	obj, err := conn.client.GetObject(ctx, bucketName, objectKey, minio.GetObjectOptions{})

	if err != nil {
		return nil, err
	}

	defer obj.Close()

	buf := bytes.NewBuffer([]byte{})

	if _, err = io.Copy(buf, obj); err != nil {
		return nil, err
	}

	return buf, nil
}

// Put writes body to bucketName/objectKey, creating the bucket when needed.
func (conn *Conn) Put(
	ctx context.Context,
	bucketName string,
	objectKey string,
	body []byte,
	contentType string,
) error {
	exists, err := conn.client.BucketExists(ctx, bucketName)

	if err != nil {
		return err
	}

	if !exists {
		if err = conn.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return err
		}
	}

	_, err = conn.client.PutObject(
		ctx, bucketName, objectKey, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType},
	)

	return err
}
