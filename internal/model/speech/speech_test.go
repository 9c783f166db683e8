package speech

import "testing"

func TestConfigVoiceFor(t *testing.T) {
	cfg := Config{Voices: map[string]string{"en": "en_voice", "hi": "hi_voice", "fr": ""}}

	cases := map[string]string{
		"en": "en_voice",
		"hi": "hi_voice",
		"fr": "en_voice",
		"de": "en_voice",
	}
	for lang, want := range cases {
		if got := cfg.VoiceFor(lang); got != want {
			t.Fatalf("VoiceFor(%q) = %q, want %q", lang, got, want)
		}
	}
}
