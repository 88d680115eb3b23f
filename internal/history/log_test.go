package history

import (
	"testing"

	"github.com/route-beacon/as-router/internal/addr"
)

func TestAppendAndReplayAnnounces(t *testing.T) {
	l := New()
	frames := [][]byte{[]byte(`{"a":1}`), []byte(`{"a":2}`)}
	for _, f := range frames {
		if err := l.AppendAnnounce(f); err != nil {
			t.Fatalf("AppendAnnounce: %v", err)
		}
	}
	if l.AnnounceCount() != 2 {
		t.Fatalf("AnnounceCount() = %d, want 2", l.AnnounceCount())
	}

	var got [][]byte
	err := l.ReplayAnnounces(func(frame []byte) error {
		cp := append([]byte(nil), frame...)
		got = append(got, cp)
		return nil
	})
	if err != nil {
		t.Fatalf("ReplayAnnounces: %v", err)
	}
	if len(got) != 2 || string(got[0]) != `{"a":1}` || string(got[1]) != `{"a":2}` {
		t.Errorf("replay returned %v, want round-tripped frames in order", stringify(got))
	}
}

func TestAppendAndReplayWithdrawalsKeepSource(t *testing.T) {
	l := New()
	src, _ := addr.ToInt("192.168.0.2")
	if err := l.AppendWithdraw([]byte(`[{"network":"10.0.0.0","netmask":"255.0.0.0"}]`), src); err != nil {
		t.Fatalf("AppendWithdraw: %v", err)
	}

	var gotSrc addr.Address
	var gotFrame []byte
	err := l.ReplayWithdrawals(func(frame []byte, source addr.Address) error {
		gotFrame = frame
		gotSrc = source
		return nil
	})
	if err != nil {
		t.Fatalf("ReplayWithdrawals: %v", err)
	}
	if gotSrc != src {
		t.Errorf("source = %s, want %s", gotSrc, src)
	}
	if string(gotFrame) != `[{"network":"10.0.0.0","netmask":"255.0.0.0"}]` {
		t.Errorf("frame = %s", gotFrame)
	}
}

func stringify(bs [][]byte) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = string(b)
	}
	return out
}
