package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"

	"github.com/minio/minio-go/v7"

	"github.com/Nazg-Gul/fm/backends/s3/internal/errs"
	"github.com/Nazg-Gul/fm/vfs"
)

// writer is a write-mode handle. Writes are buffered until the threshold
// is crossed, then streamed to a background PutObject through a pipe. The
// object is committed on Close.
type writer struct {
	b    *Backend
	key  string
	name string

	buffer       *bytes.Buffer
	pipeW        *io.PipeWriter
	putRes       chan error
	bytesWritten int64
	closed       bool
}

func newWriter(b *Backend, key, name string) *writer {
	return &writer{
		b:      b,
		key:    key,
		name:   name,
		buffer: new(bytes.Buffer),
	}
}

func (w *writer) Name() string { return w.name }

// Write buffers or streams p.
// nolint:contextcheck // io.Writer.Write signature cannot accept a context parameter
func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errs.PathError("write", w.name, fs.ErrClosed)
	}

	if w.pipeW != nil {
		n, err := w.pipeW.Write(p)
		w.bytesWritten += int64(n)
		return n, errs.PathError("write", w.name, err)
	}

	// Keep buffering while under the threshold, or when there is no client
	// to stream to.
	if int64(w.buffer.Len()+len(p)) <= w.b.multipartThreshold || w.b.client == nil {
		n, err := w.buffer.Write(p)
		w.bytesWritten += int64(n)
		return n, errs.PathError("write", w.name, err)
	}

	return w.startStreaming(p)
}

// startStreaming starts the background upload, flushes the buffer into it
// and writes p.
// nolint:contextcheck // Background upload; io.Writer.Write cannot accept context
func (w *writer) startStreaming(p []byte) (int, error) {
	pr, pw := io.Pipe()
	w.pipeW = pw
	w.putRes = make(chan error, 1)

	go func() {
		_, err := w.b.client.PutObject(context.Background(), w.b.bucket, w.key, pr, -1,
			minio.PutObjectOptions{ContentType: "application/octet-stream"})
		_ = pr.CloseWithError(err)
		w.putRes <- errs.Translate(err)
		close(w.putRes)
	}()

	if w.buffer.Len() > 0 {
		if _, err := w.pipeW.Write(w.buffer.Bytes()); err != nil {
			return 0, errs.PathError("write", w.name, err)
		}
	}
	w.buffer = nil

	n, err := w.pipeW.Write(p)
	w.bytesWritten += int64(n)
	return n, errs.PathError("write", w.name, err)
}

// Close commits the object. Closing twice is a no-op.
func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.pipeW != nil {
		_ = w.pipeW.Close()
		return errs.PathError("close", w.name, <-w.putRes)
	}

	_, err := w.b.client.PutObject(context.Background(), w.b.bucket, w.key,
		bytes.NewReader(w.buffer.Bytes()), int64(w.buffer.Len()),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	return errs.PathError("close", w.name, errs.Translate(err))
}

// reader streams an object without buffering it in memory. Seeking
// reopens the object with a range request.
type reader struct {
	b      *Backend
	key    string
	name   string
	obj    *minio.Object
	size   int64
	offset int64
	closed bool
}

func newReader(ctx context.Context, b *Backend, key, name string) (*reader, error) {
	info, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, errs.PathError("open", name, errs.Translate(err))
	}

	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errs.PathError("open", name, errs.Translate(err))
	}

	return &reader{
		b:    b,
		key:  key,
		name: name,
		obj:  obj,
		size: info.Size,
	}, nil
}

func (r *reader) Name() string { return r.name }

func (r *reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, errs.PathError("read", r.name, fs.ErrClosed)
	}
	if r.offset >= r.size {
		return 0, io.EOF
	}
	n, err := r.obj.Read(p)
	r.offset += int64(n)

	// Only report EOF when nothing was read.
	if n > 0 && errors.Is(err, io.EOF) {
		return n, nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, errs.PathError("read", r.name, errs.Translate(err))
	}
	return n, err
}

// Seek sets the position for the next Read.
// nolint:contextcheck // io.Seeker cannot accept context; using background context
func (r *reader) Seek(offset int64, whence int) (int64, error) {
	if r.closed {
		return 0, errs.PathError("seek", r.name, fs.ErrClosed)
	}

	var newOffset int64
	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekCurrent:
		newOffset = r.offset + offset
	case io.SeekEnd:
		newOffset = r.size + offset
	default:
		return 0, errs.PathError("seek", r.name, fs.ErrInvalid)
	}
	if newOffset < 0 {
		return 0, errs.PathError("seek", r.name, fs.ErrInvalid)
	}
	if newOffset == r.offset {
		return newOffset, nil
	}

	_ = r.obj.Close()

	opts := minio.GetObjectOptions{}
	if newOffset > 0 && newOffset < r.size {
		if err := opts.SetRange(newOffset, 0); err != nil {
			return 0, errs.PathError("seek", r.name, err)
		}
	}
	obj, err := r.b.client.GetObject(context.Background(), r.b.bucket, r.key, opts)
	if err != nil {
		return 0, errs.PathError("seek", r.name, errs.Translate(err))
	}

	r.obj = obj
	r.offset = newOffset
	return newOffset, nil
}

func (r *reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.obj.Close()
}

var (
	_ vfs.File  = (*writer)(nil)
	_ io.Writer = (*writer)(nil)

	_ vfs.File  = (*reader)(nil)
	_ io.Reader = (*reader)(nil)
	_ io.Seeker = (*reader)(nil)
)
