package reassembly

import (
	"bytes"
	"testing"
)

func TestFragmentAndReassembleRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox "), 50)
	chunks := Fragment(payload, 64)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	var st State
	var got []byte
	done := false
	for _, c := range chunks {
		out, complete, err := st.Add(c)
		if err != nil {
			t.Fatal(err)
		}
		if complete {
			got = out
			done = true
		}
	}
	if !done {
		t.Fatal("assembler never signaled completion")
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("reassembled payload mismatch: got %d bytes, want %d", len(got), len(payload))
	}
}

func TestFragmentSinglePacketWhenSmall(t *testing.T) {
	payload := []byte("short")
	chunks := Fragment(payload, 1024)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for small payload, got %d", len(chunks))
	}
	var st State
	got, complete, err := st.Add(chunks[0])
	if err != nil {
		t.Fatal(err)
	}
	if !complete {
		t.Fatal("expected completion on first fragment")
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q want %q", got, payload)
	}
}

func TestStateRejectsShortFirstFragment(t *testing.T) {
	var st State
	_, _, err := st.Add([]byte{1, 2, 3})
	if _, ok := err.(*MissingDataLengthError); !ok {
		t.Fatalf("expected MissingDataLengthError, got %T: %v", err, err)
	}
}

func TestUnbundlePassthroughWithoutMagic(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	msgs, err := Unbundle(payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || !bytes.Equal(msgs[0], payload) {
		t.Fatalf("expected passthrough single message, got %+v", msgs)
	}
}

func TestBundleUnbundleRoundTrip(t *testing.T) {
	messages := [][]byte{
		[]byte("first"),
		[]byte("second message, a bit longer"),
		{},
	}
	bundled := Bundle(messages)
	got, err := Unbundle(bundled)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(messages) {
		t.Fatalf("expected %d messages, got %d", len(messages), len(got))
	}
	for i := range messages {
		if !bytes.Equal(got[i], messages[i]) {
			t.Fatalf("message %d mismatch: got %q want %q", i, got[i], messages[i])
		}
	}
}

func TestUnbundleTruncatedLength(t *testing.T) {
	bad := append([]byte{bundleMagic[0], bundleMagic[1]}, 100, 1, 2, 3)
	_, err := Unbundle(bad)
	if _, ok := err.(*TruncatedBundleError); !ok {
		t.Fatalf("expected TruncatedBundleError, got %T: %v", err, err)
	}
}
