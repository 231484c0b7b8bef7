package media

import "testing"

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"programs": [],
		"streams": [
			{"width": 1280, "height": 704, "r_frame_rate": "24/1", "nb_frames": "121"}
		]
	}`)
	info, err := parseProbe(out)
	if err != nil {
		t.Fatalf("parseProbe returned error: %v", err)
	}
	if info.Width != 1280 || info.Height != 704 {
		t.Fatalf("dimensions mismatch: %dx%d", info.Width, info.Height)
	}
	if info.Frames != 121 {
		t.Fatalf("frames mismatch: %d", info.Frames)
	}
	if info.FPS != 24 {
		t.Fatalf("fps mismatch: %d", info.FPS)
	}
}

func TestParseProbeMissingFrames(t *testing.T) {
	out := []byte(`{"streams": [{"width": 854, "height": 480, "r_frame_rate": "16/1"}]}`)
	info, err := parseProbe(out)
	if err != nil {
		t.Fatalf("parseProbe returned error: %v", err)
	}
	if info.Frames != 0 {
		t.Fatalf("frames should be zero when nb_frames is absent: %d", info.Frames)
	}
	if info.FPS != 16 {
		t.Fatalf("fps mismatch: %d", info.FPS)
	}
}

func TestParseProbeNoStreams(t *testing.T) {
	if _, err := parseProbe([]byte(`{"streams": []}`)); err == nil {
		t.Fatal("expected error for empty stream list")
	}
}

func TestParseRate(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"24/1", 24},
		{"16/1", 16},
		{"30000/1001", 30},
		{"25", 25},
		{"0/0", 0},
		{"garbage", 0},
	}
	for _, c := range cases {
		if got := parseRate(c.in); got != c.want {
			t.Fatalf("parseRate(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
