package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatalSeverity(t *testing.T) {
	assert.True(t, TraceUnreadable("readTrace", "boom").Fatal())
	assert.True(t, NoPathsEitherDir("buildPaths", "boom").Fatal())
	assert.True(t, ConfigInvalid("validate", "boom").Fatal())
	assert.False(t, RecordMalformed("parseRecords", "boom").Fatal())
	assert.False(t, NoPathsOneDir("buildPaths", "boom").Fatal())
	assert.False(t, SnapshotLoadFailed("Load", "boom").Fatal())
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := TraceUnreadable("readTrace", "open trace").Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestAsAppError(t *testing.T) {
	ae, ok := AsAppError(ConfigInvalid("validate", "missing points"))
	assert.True(t, ok)
	assert.Equal(t, CodeConfigInvalid, ae.Code)

	_, ok = AsAppError(errors.New("plain error"))
	assert.False(t, ok)
}

func TestToMapIncludesMetadata(t *testing.T) {
	err := RecordMalformed("parseRecords", "bad token").WithMetadata("line", 42)
	m := err.ToMap()
	assert.Equal(t, CodeRecordMalformed, m["error_code"])
	assert.Equal(t, 42, m["error_meta_line"])
}
