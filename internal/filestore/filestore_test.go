package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveOpenDelete(t *testing.T) {
	s := NewLocalStore(t.TempDir(), 1024)
	ctx := context.Background()

	handle, err := s.Save(ctx, "lead_followups/lead_1/notes.txt", strings.NewReader("called, left voicemail"))
	require.NoError(t, err)
	assert.Equal(t, "lead_followups/lead_1/notes.txt", handle)

	rc, err := s.Open(ctx, handle)
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "called, left voicemail", string(b))

	require.NoError(t, s.Delete(ctx, handle))
	_, err = s.Open(ctx, handle)
	assert.Error(t, err)
	assert.NoError(t, s.Delete(ctx, handle))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	s := NewLocalStore(t.TempDir(), 0)

	_, err := s.Save(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = s.Save(context.Background(), "/abs/path", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLocalStore_MaxSize(t *testing.T) {
	s := NewLocalStore(t.TempDir(), 4)

	_, err := s.Save(context.Background(), "big.bin", strings.NewReader("12345"))
	assert.Error(t, err)
	_, err = s.Open(context.Background(), "big.bin")
	assert.Error(t, err)
}

func TestLocalStore_SameKeyKeepsBothFiles(t *testing.T) {
	s := NewLocalStore(t.TempDir(), 0)
	ctx := context.Background()

	first, err := s.Save(ctx, "lead_followups/lead_1/contract.pdf", strings.NewReader("FIRST"))
	require.NoError(t, err)
	second, err := s.Save(ctx, "lead_followups/lead_1/contract.pdf", strings.NewReader("SECOND"))
	require.NoError(t, err)

	assert.Equal(t, "lead_followups/lead_1/contract.pdf", first)
	assert.NotEqual(t, first, second)
	assert.Regexp(t, `^lead_followups/lead_1/contract_[0-9a-f]{7}\.pdf$`, second)

	require.NoError(t, s.Delete(ctx, second))
	rc, err := s.Open(ctx, first)
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "FIRST", string(b))
}

func TestLocalStore_RejectsKeysThatCollapse(t *testing.T) {
	s := NewLocalStore(t.TempDir(), 0)
	ctx := context.Background()

	for _, key := range []string{"lead_followups/lead_1/..", "lead_followups/./x", "a//b", "", "."} {
		_, err := s.Save(ctx, key, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}

	_, err := s.Save(ctx, "lead_followups/lead_2/ok.txt", strings.NewReader("x"))
	assert.NoError(t, err)
}
