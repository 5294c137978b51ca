package extractor_test

import (
	"testing"

	"github.com/jonesrussell/north-cloud/link-enricher/internal/extractor"
)

func TestRegistry_Select(t *testing.T) {
	t.Parallel()

	registry := extractor.DefaultRegistry()

	tests := []struct {
		url  string
		want string
	}{
		{url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: "youtube"},
		{url: "https://youtube.com/shorts/dQw4w9WgXcQ", want: "youtube"},
		{url: "https://m.youtube.com/watch?v=dQw4w9WgXcQ", want: "youtube"},
		{url: "https://youtu.be/dQw4w9WgXcQ", want: "youtube"},
		{url: "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", want: "youtube"},
		{url: "https://open.spotify.com/track/4cOdK2wGLETKBW3PvgPWqT", want: "spotify"},
		{url: "https://OPEN.SPOTIFY.COM/album/4cOdK2wGLETKBW3PvgPWqT", want: "spotify"},
		{url: "https://soundcloud.com/artist/track-name", want: "soundcloud"},
		{url: "https://m.soundcloud.com/artist/track-name", want: "soundcloud"},
		{url: "https://artist.bandcamp.com/album/night-drive", want: "bandcamp"},
		{url: "https://bandcamp.com/discover", want: "bandcamp"},
		{url: "https://example.com/article", want: "generic"},
		{url: "https://notyoutube.com/watch?v=dQw4w9WgXcQ", want: "generic"},
		{url: "https://youtube.com.evil.example/watch?v=dQw4w9WgXcQ", want: "generic"},
		{url: "https://spotify.com/track/x", want: "generic"},
		{url: "https://fakebandcamp.com/album/x", want: "generic"},
		{url: "not a url", want: "generic"},
		{url: "", want: "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()

			got := registry.Select(tt.url)
			if got == nil {
				t.Fatal("Select returned nil")
			}
			if got.Name() != tt.want {
				t.Errorf("Select(%q) = %s, want %s", tt.url, got.Name(), tt.want)
			}
			if again := registry.Select(tt.url); again.Name() != got.Name() {
				t.Errorf("selection not deterministic: %s then %s", got.Name(), again.Name())
			}
		})
	}
}

func TestRegistry_Names(t *testing.T) {
	t.Parallel()

	names := extractor.DefaultRegistry().Names()
	want := []string{"youtube", "spotify", "soundcloud", "bandcamp", "generic"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}
