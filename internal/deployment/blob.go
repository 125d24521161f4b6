package deployment

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/origin/pkg/keyfile"
	"github.com/dyluth/origin/pkg/origin"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

const originSuffix = ".origin"

// BlobStore keeps deployment origins as objects in a bucket, one
// "{stateroot}/deploy/{checksum}.{serial}.origin" object per deployment.
// A file:// bucket rooted at an ostree deploy directory reads real origin files.
type BlobStore struct {
	bucket *blob.Bucket
}

// OpenBlobStore opens the bucket at url (file://, mem://, or any driver
// linked into the binary).
func OpenBlobStore(ctx context.Context, url string) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", url, err)
	}
	return NewBlobStore(bucket), nil
}

// NewBlobStore wraps an already opened bucket. Close closes the bucket.
func NewBlobStore(bucket *blob.Bucket) *BlobStore {
	return &BlobStore{bucket: bucket}
}

// Close closes the underlying bucket.
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

// LookupOrigin reads and parses the origin object of ref.
func (s *BlobStore) LookupOrigin(ctx context.Context, ref origin.DeploymentRef) (*keyfile.Document, error) {
	data, err := s.bucket.ReadAll(ctx, BlobKey(ref))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, &origin.NoOriginError{Deployment: ref}
		}
		return nil, fmt.Errorf("failed to read origin of deployment %s: %w", ref, err)
	}
	return parseOrigin(ref, data)
}

// StoreOrigin writes the origin object of ref.
func (s *BlobStore) StoreOrigin(ctx context.Context, ref origin.DeploymentRef, kf *keyfile.Document) error {
	if err := validStateroot(ref.Stateroot); err != nil {
		return err
	}

	opts := &blob.WriterOptions{ContentType: "text/plain; charset=utf-8"}
	if err := s.bucket.WriteAll(ctx, BlobKey(ref), kf.Marshal(), opts); err != nil {
		return fmt.Errorf("failed to write origin of deployment %s: %w", ref, err)
	}
	return nil
}

// List returns the deployments of stateroot that have an origin object.
// Objects under the deploy prefix that are not named like an origin file are skipped.
func (s *BlobStore) List(ctx context.Context, stateroot string) ([]origin.DeploymentRef, error) {
	prefix := stateroot + "/deploy/"
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix, Delimiter: "/"})

	var refs []origin.DeploymentRef
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list deployments: %w", err)
		}
		if obj.IsDir || !strings.HasSuffix(obj.Key, originSuffix) {
			continue
		}

		name := strings.TrimSuffix(strings.TrimPrefix(obj.Key, prefix), originSuffix)
		ref, err := origin.ParseDeploymentRef(stateroot, name)
		if err != nil {
			continue
		}
		refs = append(refs, ref)
	}
	sortRefs(refs)
	return refs, nil
}
