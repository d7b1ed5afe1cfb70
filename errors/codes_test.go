package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode_Errno(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeOK, 0},
		{CodeCommon, -1024},
		{CodeMethodNotFound, -1026},
		{CodePluginFormat, -1152},
		{CodeInvalidURL, -1156},
		{CodePluginBusy, -1158},
		{CodeNotExist, -1280},
		{CodeAborted, -1285},
		{CodeCrossDevice, -1286},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Errno())
		})
	}
}

func TestErrorCode_ErrnoUnique(t *testing.T) {
	seen := make(map[int]ErrorCode)
	for code, n := range errnos {
		prev, dup := seen[n]
		require.False(t, dup, "%s and %s share errno %d", code, prev, n)
		seen[n] = code
	}
}

func TestErrorCode_TextForEveryCode(t *testing.T) {
	for code := range errnos {
		_, ok := texts[code]
		assert.True(t, ok, "missing text for %s", code)
	}
}

func TestErrorCode_UnknownCode(t *testing.T) {
	code := ErrorCode("NOT_A_CODE")
	assert.Equal(t, -1024, code.Errno())
	assert.Equal(t, "Unknown VFS error", code.Text())
}

func TestErrorCode_Band(t *testing.T) {
	assert.Equal(t, "ok", CodeOK.Band())
	assert.Equal(t, "common", CodeInternal.Band())
	assert.Equal(t, "plugin", CodePluginNotFound.Band())
	assert.Equal(t, "io", CodeIO.Band())
}

func TestFromErrno(t *testing.T) {
	code, ok := FromErrno(-1155)
	require.True(t, ok)
	assert.Equal(t, CodePluginNotFound, code)

	code, ok = FromErrno(-9999)
	assert.False(t, ok)
	assert.Equal(t, CodeUnknown, code)
}

func TestClassification_Defaults(t *testing.T) {
	assert.True(t, New(CodeIO, "x").Classification().IsRetryable())
	assert.True(t, New(CodePluginBusy, "x").Classification().IsRetryable())
	assert.False(t, New(CodeMethodNotFound, "x").Classification().IsRetryable())
	assert.False(t, New(CodeInvalidURL, "x").Classification().IsRetryable())
	assert.Equal(t, ClassificationPermanent, getDefaultClassification("NOT_A_CODE"))
}
