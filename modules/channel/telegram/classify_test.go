package telegram

import "testing"

func TestClassifyDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{"video mime", Document{MIMEType: "video/x-matroska", FileName: "movie.bin"}, kindVideo},
		{"audio mime", Document{MIMEType: "audio/flac", FileName: "song"}, kindAudio},
		{"image mime", Document{MIMEType: "image/png"}, kindPhoto},
		{"video ext", Document{FileName: "movie.MKV"}, kindVideo},
		{"audio ext", Document{FileName: "song.opus"}, kindAudio},
		{"image ext", Document{FileName: "pic.JPEG"}, kindPhoto},
		{"mime wins over ext", Document{MIMEType: "video/mp4", FileName: "song.mp3"}, kindVideo},
		{"plain document", Document{MIMEType: "application/pdf", FileName: "doc.pdf"}, kindDocument},
		{"ext only document", Document{FileName: "archive.zip"}, kindDocument},
		{"no signal", Document{}, ""},
		{"name without extension", Document{FileName: "README"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDocument(&tt.doc); got != tt.want {
				t.Errorf("classifyDocument(%+v) = %q, want %q", tt.doc, got, tt.want)
			}
		})
	}
}
