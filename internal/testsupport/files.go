package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteScript writes an executable /bin/sh script and returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return target
}

// FFmpegTouchOutput is an ffmpeg stub body that appends its arguments to
// $dir/ffmpeg.calls and creates the output file named by the last argument.
func FFmpegTouchOutput(callLog string) string {
	return `for arg in "$@"; do last="$arg"; done
echo "$@" >> "` + callLog + `"
printf 'media' > "$last"
exit 0
`
}

// FFmpegFail is an ffmpeg stub body that writes diagnostics and exits 1.
func FFmpegFail(stderr string) string {
	return "echo \"$@\" >/dev/null\ncat >&2 <<'DIAG'\n" + stderr + "\nDIAG\nexit 1\n"
}

// FFprobeJSON is an ffprobe stub body that prints a fixed probe result with
// one H.264 video stream, one AAC stream when withAudio is set, and the given
// duration in seconds.
func FFprobeJSON(durationSeconds string, withAudio bool) string {
	streams := `{"index":0,"codec_type":"video","codec_name":"h264","width":1280,"height":720,"duration":"` + durationSeconds + `"}`
	if withAudio {
		streams += `,{"index":1,"codec_type":"audio","codec_name":"aac","channels":2,"sample_rate":"48000","duration":"` + durationSeconds + `"}`
	}
	return "cat <<'JSON'\n" +
		`{"streams":[` + streams + `],"format":{"format_name":"mov,mp4,m4a,3gp,3g2,mj2","duration":"` + durationSeconds + `","size":"1024","bit_rate":"800000"}}` +
		"\nJSON\n"
}
