package bootstrap

import "testing"

func TestParseCredentials(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		wantPort string
		wantKey  string
		found    bool
	}{
		{
			name:     "bare connect line",
			output:   "MOSH CONNECT 60001 abcDEF123\n",
			wantPort: "60001",
			wantKey:  "abcDEF123",
			found:    true,
		},
		{
			name:     "surrounded by noise",
			output:   "motd banner\nwarning: locale\nMOSH CONNECT 60001 abcDEF123\ndetaching\n",
			wantPort: "60001",
			wantKey:  "abcDEF123",
			found:    true,
		},
		{
			name:     "first match wins",
			output:   "MOSH CONNECT 60001 firstKey\nMOSH CONNECT 60002 secondKey\n",
			wantPort: "60001",
			wantKey:  "firstKey",
			found:    true,
		},
		{
			name:     "no trailing newline yet",
			output:   "MOSH CONNECT 60044 AAbb00+/zz",
			wantPort: "60044",
			wantKey:  "AAbb00+/zz",
			found:    true,
		},
		{
			name:   "marker absent",
			output: "mosh-server: command not found\n",
		},
		{
			name:   "marker split across reads",
			output: "banner\nMOSH CONN", // rest arrives on a later poll
		},
		{
			name:   "port not yet complete without key",
			output: "MOSH CONNECT 60001",
		},
		{
			name:   "empty buffer",
			output: "",
		},
		{
			name:     "case sensitive literal",
			output:   "mosh connect 60001 key\nMOSH CONNECT 60002 realKey\n",
			wantPort: "60002",
			wantKey:  "realKey",
			found:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port, key, found := ParseCredentials([]byte(tt.output))
			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}
			if port != tt.wantPort || key != tt.wantKey {
				t.Errorf("got (%q, %q), want (%q, %q)", port, key, tt.wantPort, tt.wantKey)
			}
		})
	}
}

// TestParseCredentials_CumulativeBuffer replays the same output in
// growing prefixes the way the poll loop sees it: the parse must stay
// negative until the full line is in the buffer, then succeed.
func TestParseCredentials_CumulativeBuffer(t *testing.T) {
	full := "spurious output\nMOSH CONNECT 61377 Nn4extoNE+Wagqr4Du6EWQ\nmore\n"
	matchEnd := len("spurious output\nMOSH CONNECT 61377 Nn4extoNE+Wagqr4Du6EWQ\n")

	var sawMatch bool
	for i := 0; i <= len(full); i++ {
		port, key, found := ParseCredentials([]byte(full[:i]))
		if found {
			sawMatch = true
			if port != "61377" || key != "Nn4extoNE+Wagqr4Du6EWQ" {
				t.Fatalf("prefix %d: got (%q, %q)", i, port, key)
			}
		} else if i >= matchEnd {
			t.Fatalf("prefix %d: expected a match", i)
		}
	}
	if !sawMatch {
		t.Fatal("never matched")
	}
}

func TestCredentials_Validate(t *testing.T) {
	good := Credentials{Host: "203.0.113.9", Port: "60001", Key: "abcDEF123"}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid credentials rejected: %v", err)
	}

	bad := []Credentials{
		{Port: "60001", Key: "k"},                     // no host
		{Host: "h", Port: "", Key: "k"},               // no port
		{Host: "h", Port: "0", Key: "k"},              // port too low
		{Host: "h", Port: "70000", Key: "k"},          // port too high
		{Host: "h", Port: "sixty-thousand", Key: "k"}, // not a number
		{Host: "h", Port: "60001", Key: ""},           // no key
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("Validate(%+v): expected error", c)
		}
	}
}
