package scraper

import "testing"

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"entities", "It&#x27;s &quot;fine&quot; &amp; good", `It's "fine" & good`},
		{"paragraphs", "one<p>two<p>three", "one\ntwo\nthree"},
		{"links", `see <a href="https://x.io" rel="nofollow">x.io</a> now`, "see x.io now"},
		{"code", "<pre><code>  a := 1\n</code></pre>after", "a := 1\n\nafter"},
		{"whitespace", "  lots   of \t space  ", "lots of space"},
		{"blank lines", "a<p><p><p>b", "a\n\nb"},
		{"escaped markup stays text", "use &lt;div&gt; here", "use <div> here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.in); got != tt.want {
				t.Errorf("NormalizeText() = %q, want %q", got, tt.want)
			}
		})
	}
}
