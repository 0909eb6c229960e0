package main

import (
	"testing"

	"github.com/samcharles93/ocrun/internal/device"
)

func TestParseActionType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want uint32
		ok   bool
	}{
		{"helloworld", device.ActionTypeHelloWorld, true},
		{"memcopy", device.ActionTypeMemcopy, true},
		{"HelloWorld", device.ActionTypeHelloWorld, true},
		{"0x10140000", 0x10140000, true},
		{"10141008", 0x10141008, true},
		{"warpdrive", 0, false},
	}
	for _, tc := range cases {
		got, err := parseActionType(tc.name)
		if tc.ok != (err == nil) {
			t.Fatalf("parseActionType(%q): err = %v", tc.name, err)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("parseActionType(%q) = 0x%08x, want 0x%08x", tc.name, got, tc.want)
		}
	}
}
