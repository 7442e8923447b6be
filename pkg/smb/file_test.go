package smb

import (
	"fmt"
	"io"
	"testing"

	"github.com/ineffectivecoder/smb2client/pkg/smb/types"
)

func TestFileAccessors(t *testing.T) {
	f := &File{
		name:       "\\dir\\file.txt",
		size:       1024,
		attributes: types.FileAttributeArchive,
		isDir:      false,
	}

	if f.Name() != "\\dir\\file.txt" {
		t.Errorf("Name() = %q", f.Name())
	}
	if f.Size() != 1024 {
		t.Errorf("Size() = %d, want 1024", f.Size())
	}
	if f.IsDirectory() {
		t.Error("IsDirectory() should be false for a plain file")
	}
}

func TestFileCloseOnZeroHandleIsNoop(t *testing.T) {
	f := &File{fileID: types.FileID{}}
	if err := f.Close(); err != nil {
		t.Errorf("Close() on a zero handle = %v, want nil", err)
	}
}

func TestFileReadFromDirectoryFails(t *testing.T) {
	f := &File{isDir: true}
	_, err := f.Read(make([]byte, 10))
	if err == nil {
		t.Fatal("Read() on a directory handle should fail")
	}
}

func TestFileWriteToDirectoryFails(t *testing.T) {
	f := &File{isDir: true}
	_, err := f.Write([]byte("data"))
	if err == nil {
		t.Fatal("Write() on a directory handle should fail")
	}
}

func TestFileReadAtEmptyBufferIsNoop(t *testing.T) {
	f := &File{}
	n, err := f.ReadAt(nil, 0)
	if n != 0 || err != nil {
		t.Errorf("ReadAt(nil, 0) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestFileWriteAtEmptyBufferIsNoop(t *testing.T) {
	f := &File{}
	n, err := f.WriteAt(nil, 0)
	if n != 0 || err != nil {
		t.Errorf("WriteAt(nil, 0) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestFileSeek(t *testing.T) {
	f := &File{offset: 10, size: 100}

	cases := []struct {
		whence int
		offset int64
		want   int64
	}{
		{io.SeekStart, 5, 5},
		{io.SeekCurrent, 3, 8},
		{io.SeekEnd, -10, 90},
	}

	for _, tc := range cases {
		got, err := f.Seek(tc.offset, tc.whence)
		if err != nil {
			t.Fatalf("Seek(%d, %d) error = %v", tc.offset, tc.whence, err)
		}
		if got != tc.want {
			t.Errorf("Seek(%d, %d) = %d, want %d", tc.offset, tc.whence, got, tc.want)
		}
		f.offset = tc.want
	}
}

func TestFileSeekInvalidWhence(t *testing.T) {
	f := &File{}
	if _, err := f.Seek(0, 99); err == nil {
		t.Error("Seek with an invalid whence should fail")
	}
}

func TestFileSeekErrorMessageNamesWhence(t *testing.T) {
	f := &File{}
	_, err := f.Seek(0, 42)
	want := fmt.Sprintf("invalid whence: %d", 42)
	if err == nil || err.Error() != want {
		t.Errorf("Seek error = %v, want %q", err, want)
	}
}
