package stream

import "testing"

func TestLatestFrame(t *testing.T) {
	var h LatestFrame
	if _, ok := h.Latest(); ok {
		t.Fatal("empty holder returned a frame")
	}
	h.Set(Frame{Width: 1, Height: 1})
	h.Set(Frame{Width: 2, Height: 2})
	f, ok := h.Latest()
	if !ok || f.Width != 2 || f.Seq != 2 {
		t.Fatalf("latest = %+v %v", f, ok)
	}
	h.Close()
	if h.Set(Frame{Width: 3}) {
		t.Fatal("set after close accepted")
	}
	if _, ok := h.Latest(); ok {
		t.Fatal("closed holder returned a frame")
	}
}

func TestLatestSpectrum_Copies(t *testing.T) {
	var h LatestSpectrum
	in := []float32{1, 2, 3}
	h.Set(in)
	in[0] = 99
	got, ok := h.Latest()
	if !ok || got[0] != 1 {
		t.Fatalf("spectrum = %v", got)
	}
	got[1] = 42
	again, _ := h.Latest()
	if again[1] != 2 {
		t.Fatal("Latest leaked internal buffer")
	}
}
