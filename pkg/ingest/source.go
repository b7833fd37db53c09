package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/theapemachine/hivemind/pkg/stores/s3"
)

/*
TextSource turns a document location into plain text. Binary formats such as
PDF are converted before they reach the pipeline.
*/
type TextSource interface {
	Read(ctx context.Context, location string) (string, error)
}

/*
Lister enumerates the document locations a source can read.
*/
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

/*
PlainText reads UTF-8 files from the local filesystem.
*/
type PlainText struct{}

func (PlainText) Read(ctx context.Context, location string) (string, error) {
	b, err := os.ReadFile(location)

	if err != nil {
		return "", err
	}

	if !utf8.Valid(b) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", location)
	}

	return string(b), nil
}

// ErrOutsideRoot is returned for a location that escapes a DirSource.
var ErrOutsideRoot = errors.New("location is outside the document root")

/*
DirSource reads UTF-8 files from inside one directory. Locations are relative
to it; absolute paths, ".." segments and symlinks that lead out are refused.
*/
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (source *DirSource) Read(ctx context.Context, location string) (string, error) {
	if !filepath.IsLocal(location) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, location)
	}

	root, err := os.OpenRoot(source.dir)

	if err != nil {
		return "", err
	}

	defer root.Close()

	b, err := root.ReadFile(location)

	if err != nil {
		return "", err
	}

	if !utf8.Valid(b) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", location)
	}

	return string(b), nil
}

/*
BucketSource reads documents from an S3-compatible bucket. Locations are
object keys.
*/
type BucketSource struct {
	conn   *s3.Conn
	bucket string
	prefix string
}

func NewBucketSource(conn *s3.Conn, bucket, prefix string) *BucketSource {
	return &BucketSource{conn: conn, bucket: bucket, prefix: prefix}
}

func (source *BucketSource) Read(ctx context.Context, location string) (string, error) {
	buf, err := source.conn.Get(ctx, source.bucket, location)

	if err != nil {
		return "", err
	}

	if !utf8.Valid(buf.Bytes()) {
		return "", fmt.Errorf("%s/%s is not valid UTF-8 text", source.bucket, location)
	}

	return buf.String(), nil
}

func (source *BucketSource) List(ctx context.Context) ([]string, error) {
	return source.conn.List(ctx, source.bucket, source.prefix)
}
