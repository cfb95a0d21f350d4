package uxn

import "testing"

func TestStackPushPopRoundTrip(t *testing.T) {
	var s Stack
	for n := 1; n <= 300; n++ {
		for i := 0; i < n; i++ {
			s.PushByte(byte(i))
		}
		for i := n - 1; i >= 0; i-- {
			if got := s.PopByte(); got != byte(i) {
				t.Fatalf("n=%d: got %d, want %d", n, got, i)
			}
		}
		if s.Len() != 0 {
			t.Fatalf("n=%d: stack not empty after round trip, len=%d", n, s.Len())
		}
	}
}

func TestStackWrap(t *testing.T) {
	var s Stack
	for i := 0; i < 257; i++ {
		s.PushByte(byte(i))
	}
	// 257 pushes is equivalent to pushing 1 byte on top of a full stack:
	// the index wraps once and the last push overwrites slot 0.
	if s.Len() != 1 {
		t.Fatalf("len after 257 pushes = %d, want 1", s.Len())
	}
	// The 257th push is i=256, which truncates to byte 0x00.
	if got := s.PeekByteAt(0); got != 0x00 {
		t.Fatalf("top byte = %d, want 0", got)
	}
}

func TestStackShortEncoding(t *testing.T) {
	var s Stack
	s.PushShort(0x1234)
	if got := s.PopByte(); got != 0x34 {
		t.Fatalf("low byte on top = %#x, want 0x34", got)
	}
	if got := s.PopByte(); got != 0x12 {
		t.Fatalf("high byte below = %#x, want 0x12", got)
	}
}

func TestStackPopShortRoundTrip(t *testing.T) {
	var s Stack
	s.PushShort(0xBEEF)
	if got := s.PopShort(); got != 0xBEEF {
		t.Fatalf("got %#x, want 0xBEEF", got)
	}
}

func TestStackSWPIsIdentity(t *testing.T) {
	var s Stack
	s.PushByte(1)
	s.PushByte(2)
	a := s.PopByte()
	b := s.PopByte()
	s.PushByte(a)
	s.PushByte(b)
	a2 := s.PopByte()
	b2 := s.PopByte()
	s.PushByte(a2)
	s.PushByte(b2)
	if s.PeekByteAt(0) != 2 || s.PeekByteAt(1) != 1 {
		t.Fatalf("SWP SWP did not return to identity")
	}
}
