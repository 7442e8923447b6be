package smb

import (
	"testing"
	"time"

	"github.com/ineffectivecoder/smb2client/pkg/smb/types"
)

func TestFiletimeToTimeZeroIsWindowsEpoch(t *testing.T) {
	want := time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := filetimeToTime(0); !got.Equal(want) {
		t.Errorf("filetimeToTime(0) = %v, want %v", got, want)
	}
}

func TestFiletimeToTimeKnownValue(t *testing.T) {
	// 2021-01-01T00:00:00Z in Windows FILETIME (100ns intervals since 1601).
	want := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	const windowsEpochDiff = 116444736000000000
	ft := uint64(want.UnixNano()/100) + windowsEpochDiff

	got := filetimeToTime(ft)
	if !got.UTC().Equal(want) {
		t.Errorf("filetimeToTime(%d) = %v, want %v", ft, got.UTC(), want)
	}
}

func TestChangeNotifyResponseUnmarshalToNotifyEvents(t *testing.T) {
	// Two entries, first pointing to the second via nextEntryOffset.
	name1 := []byte{'a', 0, '.', 0, 't', 0, 'x', 0, 't', 0} // "a.txt" UTF-16LE
	name2 := []byte{'b', 0, '.', 0, 't', 0, 'x', 0, 't', 0} // "b.txt" UTF-16LE

	entry1Len := 12 + len(name1)
	buf := make([]byte, entry1Len+12+len(name2))

	// Entry 1: nextEntryOffset = entry1Len, action = added, name = a.txt
	buf[0] = byte(entry1Len)
	buf[4] = byte(types.NotifyActionAdded)
	buf[8] = byte(len(name1))
	copy(buf[12:12+len(name1)], name1)

	// Entry 2: nextEntryOffset = 0 (last entry), action = removed, name = b.txt
	off := entry1Len
	buf[off+4] = byte(types.NotifyActionRemoved)
	buf[off+8] = byte(len(name2))
	copy(buf[off+12:off+12+len(name2)], name2)

	outputOffset := uint16(types.SMB2HeaderSize + 8)
	header := make([]byte, 8)
	header[0] = 9 // StructureSize
	header[2] = byte(outputOffset)
	header[3] = byte(outputOffset >> 8)
	header[4] = byte(len(buf))

	full := append(header, buf...)

	var resp types.ChangeNotifyResponse
	if err := resp.Unmarshal(full); err != nil {
		t.Fatalf("Unmarshal() = %v, want nil", err)
	}

	if len(resp.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(resp.Entries))
	}
	if resp.Entries[0].FileName != "a.txt" || resp.Entries[0].Action != types.NotifyActionAdded {
		t.Errorf("entry 0 = %+v, want a.txt/Added", resp.Entries[0])
	}
	if resp.Entries[1].FileName != "b.txt" || resp.Entries[1].Action != types.NotifyActionRemoved {
		t.Errorf("entry 1 = %+v, want b.txt/Removed", resp.Entries[1])
	}
}
