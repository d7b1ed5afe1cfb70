package s3

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/Nazg-Gul/fm/backends/s3/internal/errs"
	"github.com/Nazg-Gul/fm/backends/s3/internal/pathutil"
	"github.com/Nazg-Gul/fm/backends/s3/internal/types"
	"github.com/Nazg-Gul/fm/errors"
	"github.com/Nazg-Gul/fm/vfs"
)

// Backend is a VFS backend over a single bucket.
//
// It has no chmod, chown, time setters, links or lstat. Moves are always
// copy then delete since Rename is not atomic.
type Backend struct {
	name               string
	client             *minio.Client
	bucket             string
	prefix             string
	multipartThreshold int64
	renameConcurrency  int
}

// New creates an S3 backend. It does not contact the server.
func New(cfg Config) (*Backend, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidArgument, "failed to create minio client")
		}
	}

	name := cfg.Name
	if name == "" {
		name = DefaultName
	}
	if strings.Contains(name, vfs.Delimiter) {
		return nil, errors.Newf(errors.CodeInvalidArgument, "backend name %q contains %q", name, vfs.Delimiter)
	}

	multipartThreshold := cfg.MultipartThreshold
	if multipartThreshold <= 0 {
		multipartThreshold = defaultMultipartThreshold
	}
	renameConcurrency := cfg.MaxRenameConcurrency
	if renameConcurrency <= 0 {
		renameConcurrency = defaultRenameConcurrency
	}

	return &Backend{
		name:               name,
		client:             client,
		bucket:             cfg.Bucket,
		prefix:             pathutil.NormalizePrefix(cfg.Prefix),
		multipartThreshold: multipartThreshold,
		renameConcurrency:  renameConcurrency,
	}, nil
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) key(name string) string {
	return pathutil.JoinPath(b.prefix, name)
}

// Open opens an object. Read mode streams the object and supports seeking.
// Write mode buffers small objects and streams large ones; the object
// appears when the handle is closed. O_RDWR, O_APPEND and O_SYNC are not
// supported.
func (b *Backend) Open(name string, flag int, _ fs.FileMode) (vfs.File, error) {
	switch {
	case flag&os.O_RDWR != 0:
		return nil, errs.PathErrorf("open", name, "%w: O_RDWR not supported in S3", fs.ErrInvalid)
	case flag&os.O_APPEND != 0:
		return nil, errs.PathErrorf("open", name, "%w: O_APPEND not supported in S3", fs.ErrInvalid)
	case flag&os.O_SYNC != 0:
		return nil, errs.PathErrorf("open", name, "%w: O_SYNC not supported in S3", fs.ErrInvalid)
	}

	key := b.key(name)
	ctx := context.Background()

	if flag&(os.O_WRONLY|os.O_CREATE) == 0 {
		return newReader(ctx, b, key, name)
	}

	if key == "" {
		return nil, errs.PathError("open", name, syscall.EISDIR)
	}
	if flag&(os.O_EXCL|os.O_CREATE) != os.O_CREATE {
		// O_EXCL needs the object absent, a missing O_CREATE needs it present.
		_, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
		exists := err == nil
		if err != nil && !errors.Is(errs.Translate(err), fs.ErrNotExist) {
			return nil, errs.PathError("open", name, errs.Translate(err))
		}
		if flag&os.O_EXCL != 0 && exists {
			return nil, errs.PathError("open", name, fs.ErrExist)
		}
		if flag&os.O_CREATE == 0 && !exists {
			return nil, errs.PathError("open", name, fs.ErrNotExist)
		}
	}
	return newWriter(b, key, name), nil
}

// Stat returns metadata for an object or a virtual directory.
func (b *Backend) Stat(name string) (fs.FileInfo, error) {
	key := b.key(name)
	base := path.Base("/" + pathutil.Normalize(name))
	if key == "" {
		return types.NewDirInfo(base, time.Time{}), nil
	}

	ctx := context.Background()
	info, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return types.NewFileInfo(base, info.Size, info.LastModified), nil
	}
	if err = errs.Translate(err); !errors.Is(err, fs.ErrNotExist) {
		return nil, errs.PathError("stat", name, err)
	}

	marker, ok, err := b.probeDir(ctx, key)
	if err != nil {
		return nil, errs.PathError("stat", name, err)
	}
	if !ok {
		return nil, errs.PathError("stat", name, fs.ErrNotExist)
	}
	return types.NewDirInfo(base, marker), nil
}

// probeDir reports whether key is a directory and, when it has a marker
// object, the marker's modification time.
func (b *Backend) probeDir(ctx context.Context, key string) (time.Time, bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prefix := pathutil.DirPrefix(key)
	for object := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:  prefix,
		MaxKeys: 1,
	}) {
		if object.Err != nil {
			return time.Time{}, false, errs.Translate(object.Err)
		}
		if object.Key == prefix {
			return object.LastModified, true, nil
		}
		return time.Time{}, true, nil
	}
	return time.Time{}, false, nil
}

// isFile reports whether an object exists at key.
func (b *Backend) isFile(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	_, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if err = errs.Translate(err); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Scandir lists the direct children of a directory, sorted by name.
func (b *Backend) Scandir(name string) ([]*vfs.DirEntry, error) {
	key := b.key(name)
	prefix := pathutil.DirPrefix(key)
	ctx := context.Background()

	var entries []*vfs.DirEntry
	sawMarker := false
	for object := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if object.Err != nil {
			return nil, errs.PathError("scandir", name, errs.Translate(object.Err))
		}
		if object.Key == prefix {
			sawMarker = true
			continue
		}

		rel := strings.TrimPrefix(object.Key, prefix)
		isDir := strings.HasSuffix(rel, "/")
		if rel = strings.TrimSuffix(rel, "/"); rel == "" {
			continue
		}
		var info fs.FileInfo = types.NewFileInfo(rel, object.Size, object.LastModified)
		if isDir {
			info = types.NewDirInfo(rel, object.LastModified)
		}
		entries = append(entries, vfs.NewDirEntry(rel, info, info, nil))
	}

	if len(entries) == 0 && !sawMarker && key != "" {
		file, err := b.isFile(ctx, key)
		switch {
		case err != nil:
			return nil, errs.PathError("scandir", name, err)
		case file:
			return nil, errs.PathError("scandir", name, syscall.ENOTDIR)
		default:
			return nil, errs.PathError("scandir", name, fs.ErrNotExist)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Unlink removes an object. Removing a missing object succeeds.
func (b *Backend) Unlink(name string) error {
	key := b.key(name)
	ctx := context.Background()

	file, err := b.isFile(ctx, key)
	if err != nil {
		return errs.PathError("unlink", name, err)
	}
	if !file {
		if _, dir, err := b.probeDir(ctx, key); err != nil {
			return errs.PathError("unlink", name, err)
		} else if dir || key == "" {
			return errs.PathError("unlink", name, syscall.EISDIR)
		}
	}

	err = b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{})
	return errs.PathError("unlink", name, errs.Translate(err))
}

// Mkdir writes a directory marker. Parents are implicit.
func (b *Backend) Mkdir(name string, _ fs.FileMode) error {
	key := b.key(name)
	if key == "" {
		return errs.PathError("mkdir", name, fs.ErrExist)
	}
	ctx := context.Background()

	file, err := b.isFile(ctx, key)
	if err != nil {
		return errs.PathError("mkdir", name, err)
	}
	if file {
		return errs.PathError("mkdir", name, fs.ErrExist)
	}
	if _, dir, err := b.probeDir(ctx, key); err != nil {
		return errs.PathError("mkdir", name, err)
	} else if dir {
		return errs.PathError("mkdir", name, fs.ErrExist)
	}

	_, err = b.client.PutObject(ctx, b.bucket, pathutil.DirPrefix(key), strings.NewReader(""), 0,
		minio.PutObjectOptions{ContentType: "application/x-directory"})
	return errs.PathError("mkdir", name, errs.Translate(err))
}

// Rmdir removes an empty directory's marker.
func (b *Backend) Rmdir(name string) error {
	key := b.key(name)
	if key == "" {
		return errs.PathError("rmdir", name, fs.ErrPermission)
	}
	prefix := pathutil.DirPrefix(key)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sawMarker := false
	for object := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:  prefix,
		MaxKeys: 2,
	}) {
		if object.Err != nil {
			return errs.PathError("rmdir", name, errs.Translate(object.Err))
		}
		if object.Key != prefix {
			return errs.PathError("rmdir", name, syscall.ENOTEMPTY)
		}
		sawMarker = true
	}

	if !sawMarker {
		file, err := b.isFile(ctx, key)
		if err != nil {
			return errs.PathError("rmdir", name, err)
		}
		if file {
			return errs.PathError("rmdir", name, syscall.ENOTDIR)
		}
		return errs.PathError("rmdir", name, fs.ErrNotExist)
	}

	err := b.client.RemoveObject(ctx, b.bucket, prefix, minio.RemoveObjectOptions{})
	return errs.PathError("rmdir", name, errs.Translate(err))
}

// Rename renames an object, or every key below a directory, by copying
// and then deleting.
//
// The operation is not atomic. A failure during the copy phase may leave
// some objects copied; a failure during the delete phase leaves objects at
// both paths.
func (b *Backend) Rename(oldname, newname string) error {
	oldKey, newKey := b.key(oldname), b.key(newname)
	ctx := context.Background()

	file, err := b.isFile(ctx, oldKey)
	if err != nil {
		return errs.PathError("rename", oldname, err)
	}
	if file {
		return b.renameFile(ctx, oldKey, newKey, oldname)
	}
	if oldKey == "" || newKey == oldKey || strings.HasPrefix(newKey, pathutil.DirPrefix(oldKey)) {
		return errs.PathError("rename", oldname, fs.ErrInvalid)
	}

	copied, err := b.parallelCopy(ctx, pathutil.DirPrefix(oldKey), pathutil.DirPrefix(newKey))
	if err != nil {
		return errs.PathError("rename", oldname, errs.Translate(err))
	}
	if len(copied) == 0 {
		return errs.PathError("rename", oldname, fs.ErrNotExist)
	}

	toDelete := make(chan minio.ObjectInfo, len(copied))
	for _, key := range copied {
		toDelete <- minio.ObjectInfo{Key: key}
	}
	close(toDelete)

	for rErr := range b.client.RemoveObjects(ctx, b.bucket, toDelete, minio.RemoveObjectsOptions{}) {
		if rErr.Err != nil {
			return errs.PathError("rename", oldname, errs.Translate(rErr.Err))
		}
	}
	return nil
}

func (b *Backend) renameFile(ctx context.Context, oldKey, newKey, oldname string) error {
	if oldKey == newKey {
		return nil
	}
	src := minio.CopySrcOptions{Bucket: b.bucket, Object: oldKey}
	dst := minio.CopyDestOptions{Bucket: b.bucket, Object: newKey}
	if _, err := b.client.CopyObject(ctx, dst, src); err != nil {
		return errs.PathError("rename", oldname, errs.Translate(err))
	}

	err := b.client.RemoveObject(ctx, b.bucket, oldKey, minio.RemoveObjectOptions{})
	return errs.PathError("rename", oldname, errs.Translate(err))
}

// parallelCopy copies every object under oldPrefix to newPrefix with a
// bounded worker pool and returns the keys it copied.
func (b *Backend) parallelCopy(ctx context.Context, oldPrefix, newPrefix string) ([]string, error) {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.renameConcurrency)

	var copiedMu sync.Mutex
	var copied []string

	for object := range b.client.ListObjects(egCtx, b.bucket, minio.ListObjectsOptions{
		Prefix:    oldPrefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			_ = eg.Wait()
			return copied, object.Err
		}

		objectKey := object.Key
		eg.Go(func() error {
			newKey := newPrefix + strings.TrimPrefix(objectKey, oldPrefix)
			src := minio.CopySrcOptions{Bucket: b.bucket, Object: objectKey}
			dst := minio.CopyDestOptions{Bucket: b.bucket, Object: newKey}
			if _, err := b.client.CopyObject(egCtx, dst, src); err != nil {
				return fmt.Errorf("copy object %s to %s: %w", objectKey, newKey, err)
			}

			copiedMu.Lock()
			copied = append(copied, objectKey)
			copiedMu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return copied, err
	}
	return copied, nil
}

// MoveStrategy always copies. Rename is not atomic.
func (b *Backend) MoveStrategy(_, _ string) vfs.Strategy {
	return vfs.MoveCopy
}

var (
	_ vfs.OpenFS         = (*Backend)(nil)
	_ vfs.StatFS         = (*Backend)(nil)
	_ vfs.ScandirFS      = (*Backend)(nil)
	_ vfs.UnlinkFS       = (*Backend)(nil)
	_ vfs.MkdirFS        = (*Backend)(nil)
	_ vfs.RmdirFS        = (*Backend)(nil)
	_ vfs.RenameFS       = (*Backend)(nil)
	_ vfs.MoveStrategyFS = (*Backend)(nil)
)
