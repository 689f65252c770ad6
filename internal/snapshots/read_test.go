package snapshots

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/pkgsnap/internal/device"
)

func newTestStore(root string) *Store {
	return NewStore(root, WithLogger(zerolog.Nop()))
}

func writeSnapshotFile(t *testing.T, path, content string) Handle {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return Handle{Path: path}
}

func TestListSnapshotsNonexistentDir(t *testing.T) {
	s := newTestStore(t.TempDir())

	handles := s.ListSnapshots(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.NotNil(t, handles)
	assert.Empty(t, handles)
}

func TestListSnapshotsSortedAndSkipsTemp(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "d")
	for _, name := range []string{
		"2024-02-01_00-00-00.json",
		"2023-12-31_23-59-59.json",
		".tmp-12345.json",
	} {
		writeSnapshotFile(t, filepath.Join(dir, name), "{}")
	}

	s := newTestStore(root)
	handles := s.ListSnapshots(dir)
	require.Len(t, handles, 2)
	assert.Equal(t, "2023-12-31_23-59-59.json", handles[0].String())
	assert.Equal(t, "2024-02-01_00-00-00.json", handles[1].String())

	assert.Equal(t, handles, s.ListDevice("d"))
}

func TestLatest(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "d")
	writeSnapshotFile(t, filepath.Join(dir, "2024-01-01_00-00-00.json"), "{}")
	writeSnapshotFile(t, filepath.Join(dir, "2024-06-01_00-00-00.json"), "{}")
	writeSnapshotFile(t, filepath.Join(dir, "notes.txt"), "")

	s := newTestStore(root)
	h, ok := s.Latest("d")
	require.True(t, ok)
	assert.Equal(t, "2024-06-01_00-00-00.json", h.String())

	_, ok = s.Latest("other")
	assert.False(t, ok)
}

func TestDevices(t *testing.T) {
	root := t.TempDir()
	writeSnapshotFile(t, filepath.Join(root, "a", "x.json"), "{}")
	writeSnapshotFile(t, filepath.Join(root, "b", "x.json"), "{}")
	writeSnapshotFile(t, filepath.Join(root, "stray.json"), "{}")

	assert.Equal(t, []string{"a", "b"}, newTestStore(root).Devices())
	assert.Empty(t, newTestStore(filepath.Join(root, "missing")).Devices())
}

func TestReadUsers(t *testing.T) {
	root := t.TempDir()
	h := writeSnapshotFile(t, filepath.Join(root, "d", "s.json"), `{
		"device_id": "d",
		"users": [
			{"id": 0, "packages": []},
			{"id": 10, "packages": [{"name": "com.foo", "state": "Disabled"}]}
		]
	}`)

	users := newTestStore(root).ReadUsers(h)
	assert.Equal(t, []device.User{
		{ID: 0, Index: 0, Protected: false},
		{ID: 10, Index: 0, Protected: false},
	}, users)
}

func TestReadUsersLenient(t *testing.T) {
	root := t.TempDir()
	s := newTestStore(root)

	t.Run("missing file", func(t *testing.T) {
		users := s.ReadUsers(Handle{Path: filepath.Join(root, "nope.json")})
		assert.NotNil(t, users)
		assert.Empty(t, users)
	})

	t.Run("malformed file", func(t *testing.T) {
		h := writeSnapshotFile(t, filepath.Join(root, "bad.json"), "not valid json")
		assert.Empty(t, s.ReadUsers(h))
	})
}

func TestLoadErrors(t *testing.T) {
	root := t.TempDir()
	s := newTestStore(root)

	tests := []struct {
		name    string
		content string
		missing bool
		want    *Error
	}{
		{name: "missing", missing: true, want: ErrIO},
		{name: "invalid json", content: "{", want: ErrParse},
		{name: "unknown state", content: `{"users":[{"id":1,"packages":[{"name":"a","state":"Frozen"}]}]}`, want: ErrParse},
		{name: "duplicate user", content: `{"users":[{"id":1,"packages":[]},{"id":1,"packages":[]}]}`, want: ErrParse},
		{name: "duplicate package", content: `{"users":[{"id":1,"packages":[{"name":"a","state":"Enabled"},{"name":"a","state":"Disabled"}]}]}`, want: ErrParse},
		{name: "missing state", content: `{"users":[{"id":0,"packages":[{"name":"com.x"}]}]}`, want: ErrParse},
		{name: "null state", content: `{"users":[{"id":0,"packages":[{"name":"com.x","state":null}]}]}`, want: ErrParse},
		{name: "filter state", content: `{"users":[{"id":0,"packages":[{"name":"com.x","state":"All"}]}]}`, want: ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(root, tt.name+".json")
			if !tt.missing {
				writeSnapshotFile(t, path, tt.content)
			}

			snap, err := s.Load(path)
			assert.Nil(t, snap)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var serr *Error
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, path, serr.Path)
		})
	}
}

func TestRecord(t *testing.T) {
	root := t.TempDir()
	h := writeSnapshotFile(t, filepath.Join(root, "d", "2024-03-09_14-05-07.json"), `{
		"device_id": "d",
		"users": [{"id": 0, "packages": [{"name": "a", "state": "Enabled"}, {"name": "b", "state": "Disabled"}]}]
	}`)

	rec, err := newTestStore(root).Record(h)
	require.NoError(t, err)
	assert.Equal(t, "d", rec.DeviceID)
	assert.Equal(t, 1, rec.UserCount)
	assert.Equal(t, 2, rec.PackageCount)
	assert.True(t, rec.CreatedAt.Equal(fixedTime))
}

func TestRecordFallsBackToModTime(t *testing.T) {
	root := t.TempDir()
	h := writeSnapshotFile(t, filepath.Join(root, "d", "manual-export.json"), `{"device_id":"d","users":[]}`)

	rec, err := newTestStore(root).Record(h)
	require.NoError(t, err)
	assert.False(t, rec.CreatedAt.IsZero())
}
