package models

import "testing"

func TestAccountMatchesIdentifier(t *testing.T) {
	account := Account{Handle: "ada", Email: "ada@example.com"}

	cases := []struct {
		name       string
		identifier string
		want       bool
	}{
		{name: "handle", identifier: "ada", want: true},
		{name: "handle mixed case", identifier: "AdA", want: true},
		{name: "email", identifier: "ada@example.com", want: true},
		{name: "email mixed case", identifier: "ADA@Example.com", want: true},
		{name: "surrounding whitespace", identifier: "  ada  ", want: true},
		{name: "other handle", identifier: "grace", want: false},
		{name: "other email", identifier: "grace@example.com", want: false},
		{name: "empty", identifier: "", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := account.MatchesIdentifier(tc.identifier); got != tc.want {
				t.Fatalf("MatchesIdentifier(%q) = %v, want %v", tc.identifier, got, tc.want)
			}
		})
	}
}
