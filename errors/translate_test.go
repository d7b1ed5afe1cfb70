package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"not exist", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, CodeNotExist},
		{"os not exist", os.ErrNotExist, CodeNotExist},
		{"exist", fmt.Errorf("mkdir: %w", fs.ErrExist), CodeExist},
		{"permission", fs.ErrPermission, CodePermission},
		{"enotdir", &fs.PathError{Op: "open", Path: "/f/x", Err: syscall.ENOTDIR}, CodeNotDir},
		{"exdev", &os.LinkError{Op: "rename", Old: "/a", New: "/mnt/b", Err: syscall.EXDEV}, CodeCrossDevice},
		{"invalid", fs.ErrInvalid, CodeInvalidArgument},
		{"canceled", context.Canceled, CodeAborted},
		{"short read", io.ErrUnexpectedEOF, CodeIO},
		{"other", stderrors.New("disk on fire"), CodeIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.err)
			require.Error(t, got)
			assert.Equal(t, tt.want, GetCode(got))
			assert.True(t, stderrors.Is(got, tt.err))
		})
	}
}

func TestTranslate_KeepsCodedErrors(t *testing.T) {
	orig := MethodNotFound("open", "x")
	require.Equal(t, orig, Translate(orig))
	require.Equal(t, CodeMethodNotFound, GetCode(Translate(fmt.Errorf("outer: %w", orig))))
	require.Nil(t, Translate(nil))
}

func TestTranslateOp(t *testing.T) {
	err := TranslateOp(fs.ErrNotExist, "stat", "/missing")

	var vErr Error
	require.True(t, As(err, &vErr))
	assert.Equal(t, CodeNotExist, vErr.Code())
	assert.Equal(t, "stat", vErr.Context()["op"])
	assert.Equal(t, "/missing", vErr.Context()["path"])
	assert.Nil(t, TranslateOp(nil, "stat", "/"))
}
