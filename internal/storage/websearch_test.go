package storage

import "testing"

func TestWebsearchToFTS5(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"cache", `"cache"`},
		{"redis cache", `"redis" AND "cache"`},
		{"redis or memcached", `("redis" OR "memcached")`},
		{"fast redis OR memcached", `"fast" AND ("redis" OR "memcached")`},
		{`"cache layer" design`, `"cache layer" AND "design"`},
		{"cache -redis", `("cache") NOT "redis"`},
		{`cache -"redis cluster"`, `("cache") NOT "redis cluster"`},
		{"-redis", ""},
		{"or cache", `"cache"`},
		{"cache or", `"cache"`},
		{"foo-bar", `"foo bar"`},
		{`title:secret`, `"title secret"`},
		{`NEAR(a b)`, `"NEAR" AND "b"`},
		{`unterminated "phrase here`, `"unterminated" AND "phrase here"`},
		{"a - b", `"b"`},
		{"what is the postgres storage", `"postgres" AND "storage"`},
		{"How do we cache THE sessions?", `"cache" AND "sessions"`},
		{"what is this", ""},
		{"cache or the", `"cache"`},
		{"cache -the", `"cache"`},
		{"don't cache", `"cache"`},
		{`"the cache" layer`, `"the cache" AND "layer"`},
	}
	for _, tt := range tests {
		if got := websearchToFTS5(tt.in); got != tt.want {
			t.Errorf("websearchToFTS5(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
