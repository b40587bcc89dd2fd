package episodes

import (
	"encoding/json"
	"testing"
	"time"
)

func TestShape(t *testing.T) {
	raw := `{
		"id": "a-importancia-da-contribuicao-em-open-source",
		"title": "Faladev #30 | A importância da contribuição em Open Source",
		"members": "Diego Fernandes, João Pedro",
		"published_at": "2021-01-22 10:00:00",
		"thumbnail": "https://example.com/opensource.jpg",
		"description": "<p>Nesse episódio</p>",
		"file": {"url": "https://example.com/opensource.m4a", "type": "audio/x-m4a", "duration": "3981"}
	}`
	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ep, err := Shape(r, LocalePtBR)
	if err != nil {
		t.Fatalf("Shape: %v", err)
	}
	if ep.Duration != 3981 {
		t.Fatalf("Duration = %d, want 3981", ep.Duration)
	}
	if ep.DurationAsString != "01:06:21" {
		t.Fatalf("DurationAsString = %q, want 01:06:21", ep.DurationAsString)
	}
	if ep.PublishedAt != "22 jan 21" {
		t.Fatalf("PublishedAt = %q, want 22 jan 21", ep.PublishedAt)
	}
	if ep.URL != "https://example.com/opensource.m4a" {
		t.Fatalf("URL = %q", ep.URL)
	}
}

func TestShapeDurations(t *testing.T) {
	tests := []struct {
		name string
		json string
		want int
	}{
		{"string", `"120"`, 120},
		{"number", `120`, 120},
		{"fraction", `"90.7"`, 90},
		{"empty", `""`, 0},
		{"null", `null`, 0},
		{"garbage", `"abc"`, 0},
		{"negative", `-3`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			doc := `{"id":"x","published_at":"2021-05-01","file":{"url":"u","duration":` + tt.json + `}}`
			if err := json.Unmarshal([]byte(doc), &r); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			ep, err := Shape(r, LocalePtBR)
			if err != nil {
				t.Fatalf("Shape: %v", err)
			}
			if ep.Duration != tt.want {
				t.Fatalf("Duration = %d, want %d", ep.Duration, tt.want)
			}
		})
	}
}

func TestShapeRejectsBadDate(t *testing.T) {
	if _, err := Shape(Record{ID: "x", PublishedAt: "yesterday"}, LocalePtBR); err == nil {
		t.Fatalf("expected error for unparsable date")
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2020, time.September, 5, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(d, LocalePtBR); got != "5 set 20" {
		t.Fatalf("pt-BR = %q, want 5 set 20", got)
	}
	if got := FormatDate(d, LocaleEnUS); got != "5 Sep 20" {
		t.Fatalf("en-US = %q, want 5 Sep 20", got)
	}
	if got := FormatDate(time.Date(2009, time.February, 14, 0, 0, 0, 0, time.UTC), LocalePtBR); got != "14 fev 09" {
		t.Fatalf("pt-BR = %q, want 14 fev 09", got)
	}
}

func TestParseLocale(t *testing.T) {
	if ParseLocale("en-US") != LocaleEnUS || ParseLocale("pt-BR") != LocalePtBR || ParseLocale("") != LocalePtBR {
		t.Fatalf("ParseLocale mismatch")
	}
}
