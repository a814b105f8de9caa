// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package models

import "testing"

func TestParseLeadingYear(t *testing.T) {
	tests := []struct {
		name string
		date string
		want int
	}{
		{name: "full provider date", date: "1999-03-31", want: 1999},
		{name: "bare year", date: "2014", want: 2014},
		{name: "empty string", date: "", want: 0},
		{name: "too short", date: "99", want: 0},
		{name: "non-numeric prefix", date: "n/a-2020", want: 0},
		{name: "whitespace prefix", date: " 2020-01-01", want: 0},
		{name: "year zero", date: "0000-01-01", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLeadingYear(tt.date); got != tt.want {
				t.Errorf("ParseLeadingYear(%q) = %d, want %d", tt.date, got, tt.want)
			}
		})
	}
}

func TestMediaTypeValid(t *testing.T) {
	tests := []struct {
		mt   MediaType
		want bool
	}{
		{MediaTypeMovie, true},
		{MediaTypeShow, true},
		{MediaType("episode"), false},
		{MediaType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mt), func(t *testing.T) {
			if got := tt.mt.Valid(); got != tt.want {
				t.Errorf("MediaType(%q).Valid() = %v, want %v", tt.mt, got, tt.want)
			}
		})
	}
}

func TestResolvedItemReleaseYear(t *testing.T) {
	item := &ResolvedItem{ReleaseDate: "1994-09-23"}
	if got := item.ReleaseYear(); got != 1994 {
		t.Errorf("ReleaseYear() = %d, want 1994", got)
	}

	missing := &ResolvedItem{}
	if got := missing.ReleaseYear(); got != 0 {
		t.Errorf("ReleaseYear() with no date = %d, want 0", got)
	}
}
