package richtext

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		body string
		ok   bool
	}{
		{name: "simple text", body: `{"ops":[{"insert":"hello\n"}]}`, ok: true},
		{name: "formatted text", body: `{"ops":[{"insert":"hi","attributes":{"bold":true}},{"insert":"\n"}]}`, ok: true},
		{name: "empty string", body: "", ok: false},
		{name: "whitespace", body: "   ", ok: false},
		{name: "not json", body: "hello", ok: false},
		{name: "no ops", body: `{"ops":[]}`, ok: false},
		{name: "wrong shape", body: `{"text":"hello"}`, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.body)
			if tc.ok && err != nil {
				t.Fatalf("Validate(%q) = %v, want nil", tc.body, err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidBody) {
				t.Fatalf("Validate(%q) = %v, want ErrInvalidBody", tc.body, err)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "plain",
			body: `{"ops":[{"insert":"hello world\n"}]}`,
			want: "hello world",
		},
		{
			name: "multiple ops with formatting",
			body: `{"ops":[{"insert":"ship "},{"insert":"it","attributes":{"bold":true}},{"insert":"\n"}]}`,
			want: "ship it",
		},
		{
			name: "skips embeds",
			body: `{"ops":[{"insert":{"image":"key123"}},{"insert":"caption\n"}]}`,
			want: "caption",
		},
		{
			name: "collapses whitespace",
			body: `{"ops":[{"insert":"a\n\n  b\n"}]}`,
			want: "a b",
		},
		{
			name: "invalid body",
			body: "not json",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Extract(tc.body); got != tc.want {
				t.Fatalf("Extract() = %q, want %q", got, tc.want)
			}
		})
	}
}
