package report

import (
	"bytes"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	rows := []Row{
		{GID: 0, Level: 1, Lx1: 0, Lx2: 0, Lx3: 0, Rank: 0, Cost: 1},
		{GID: 1, Level: 1, Lx1: 1, Lx2: 0, Lx3: 0, Rank: 1, Cost: 2.5},
		{GID: 2, Level: 2, Lx1: 3, Lx2: 1, Lx3: 0, Rank: 1, Cost: 0.25},
	}

	buf := &bytes.Buffer{}
	if err := Write(buf, rows); err != nil {
		t.Fatalf("Write: %s", err.Error())
	}

	got, err := Read(buf)
	if err != nil {
		t.Fatalf("Read: %s", err.Error())
	}

	if len(got) != len(rows) {
		t.Fatalf("got %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], rows[i])
		}
	}
}

func TestReadRejectsMalformed(t *testing.T) {
	buf := bytes.NewBufferString(header + "\n0 1 0 0 0 0\n")
	if _, err := Read(buf); err == nil {
		t.Errorf("expected an error for a short row")
	}
}

func TestReadSkipsCommentsAndBlankLines(t *testing.T) {
	buf := bytes.NewBufferString("# a comment\n\n0 1 0 0 0 0 1\n")
	rows, err := Read(buf)
	if err != nil {
		t.Fatalf("Read: %s", err.Error())
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
}
