package platform

import (
	"runtime"
	"testing"
)

func TestDetect(t *testing.T) {
	t.Setenv(UserAgentEnv, "Mozilla/5.0 (Linux; Android 14; Pixel 8)")

	p := Detect()

	if p == "" {
		t.Fatal("platform should not be empty")
	}

	if want, ok := fromGOOS(runtime.GOOS); ok {
		if p != want {
			t.Errorf("Detect() = %s, want %s", p, want)
		}
		return
	}

	if p != Android {
		t.Errorf("Detect() = %s, want android from user agent", p)
	}
}

func TestDetectDefaultsToWeb(t *testing.T) {
	if _, ok := fromGOOS(runtime.GOOS); ok {
		t.Skip("running on a mobile GOOS")
	}
	t.Setenv(UserAgentEnv, "")

	if got := Detect(); got != Web {
		t.Errorf("Detect() = %s, want web", got)
	}
}

func TestFromUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want Platform
	}{
		{
			name: "android phone",
			ua:   "Mozilla/5.0 (Linux; Android 13; SM-S901B) AppleWebKit/537.36",
			want: Android,
		},
		{
			name: "iphone",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)",
			want: IOS,
		},
		{
			name: "ipad",
			ua:   "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X)",
			want: IOS,
		},
		{
			name: "desktop chrome",
			ua:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0",
			want: Web,
		},
		{
			name: "empty",
			ua:   "",
			want: Web,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromUserAgent(tt.ua); got != tt.want {
				t.Errorf("FromUserAgent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Platform
		wantErr bool
	}{
		{"ios", IOS, false},
		{"Android", Android, false},
		{" web ", Web, false},
		{"", "", true},
		{"windows", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFixed(t *testing.T) {
	d := Fixed(IOS)
	if got := d(); got != IOS {
		t.Errorf("Fixed(IOS)() = %v, want ios", got)
	}
}

func TestAll(t *testing.T) {
	all := All()
	if len(all) != 3 {
		t.Fatalf("All() returned %d platforms, want 3", len(all))
	}
	for _, p := range all {
		if err := p.Validate(); err != nil {
			t.Errorf("%s.Validate() = %v", p, err)
		}
	}
}
