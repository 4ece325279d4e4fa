package storage

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBlobStoreSaveAndOpen(t *testing.T) {
	store, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)

	key := "exports/org-1/null/job-1/transcript_job-1.pdf"
	saved, err := store.Save(key, []byte("payload"))
	require.NoError(t, err)
	require.Equal(t, key, saved)

	file, err := store.Open(key)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

func TestBlobStoreSaveDoesNotClobber(t *testing.T) {
	store, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)

	key := "exports/org-1/sch-1/job-2/report.csv"
	_, err = store.Save(key, []byte("first"))
	require.NoError(t, err)

	_, err = store.Save(key, []byte("second"))
	require.ErrorIs(t, err, ErrObjectExists)

	file, err := store.Open(key)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "first", string(data))
}

func TestBlobStoreRejectsTraversal(t *testing.T) {
	store, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)

	saved, err := store.Save("../outside.txt", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, "../outside.txt", saved)
	// key is normalised under the base dir rather than escaping it
	require.Contains(t, store.Path("../outside.txt"), store.baseDir)
}

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, expiresAt, err := signer.Generate("job-1", "exports/org-1/null/job-1/file.csv", 30*time.Minute)
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	jobID, key, _, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, "exports/org-1/null/job-1/file.csv", key)
}

func TestSignedURLExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, _, err := signer.Generate("job-1", "exports/org-1/null/job-1/file.csv", time.Nanosecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, _, _, err = signer.Parse(token)
	require.Error(t, err)
}

func TestSignedURLTamperedSignature(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	other := NewSignedURLSigner("other", time.Hour)

	token, _, err := signer.Generate("job-1", "exports/org-1/null/job-1/file.csv", time.Minute)
	require.NoError(t, err)

	_, _, _, err = other.Parse(token)
	require.Error(t, err)
}
