package shape

import (
	"encoding/json"
	"testing"
)

func adaptJSON(t *testing.T, body string) []int {
	t.Helper()
	var raw any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	verses := Adapt(raw)
	nums := make([]int, len(verses))
	for i, v := range verses {
		nums[i] = v.Number
	}
	return nums
}

func TestAdaptEnvelopes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []int
	}{
		{"bare array", `[{"number":1,"text":"a"},{"number":2,"text":"b"}]`, []int{1, 2}},
		{"vers", `{"vers":[{"number":16,"verse":"Porque de tal manera..."}]}`, []int{16}},
		{"verses", `{"verses":[{"number":3,"text":"c"}]}`, []int{3}},
		{"data.verses", `{"data":{"verses":[{"number":4,"text":"d"}]}}`, []int{4}},
		{"chapter.verses", `{"chapter":{"verses":[{"number":5,"text":"e"}]}}`, []int{5}},
		{"data.chapter.verses", `{"data":{"chapter":{"verses":[{"number":6,"text":"f"}]}}}`, []int{6}},
		{"results.verses", `{"results":{"verses":[{"number":7,"text":"g"}]}}`, []int{7}},
		{"bare chapter array", `{"chapter":[{"number":8,"text":"h"}]}`, []int{8}},
		{"numeric object", `{"2":"b","1":"a","10":"j"}`, []int{1, 2, 10}},
	}
	for _, c := range cases {
		if got := adaptJSON(t, c.body); !equalInts(got, c.want) {
			t.Errorf("%s: numbers = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestAdaptTotality(t *testing.T) {
	// None of these may panic, and all must yield an empty slice.
	for _, raw := range []any{
		nil,
		"garbage string",
		42.0,
		map[string]any{"unrelated": true},
		map[string]any{"verses": "not an array"},
		map[string]any{},
		[]any{}, // recognized, empty
	} {
		verses := Adapt(raw)
		if verses == nil {
			t.Errorf("Adapt(%v) returned nil, want empty slice", raw)
		}
		if len(verses) != 0 {
			t.Errorf("Adapt(%v) = %v, want empty", raw, verses)
		}
	}
}

func TestAdaptFieldAliases(t *testing.T) {
	nums := adaptJSON(t, `[{"num":9,"content":"x"},{"verse":"texto","number":10}]`)
	if !equalInts(nums, []int{9, 10}) {
		t.Errorf("field aliases: numbers = %v", nums)
	}

	var raw any
	_ = json.Unmarshal([]byte(`[{"number":16,"verse":"Porque de tal manera"}]`), &raw)
	verses := Adapt(raw)
	if len(verses) != 1 || verses[0].Text != "Porque de tal manera" {
		t.Errorf("verse-as-text: %+v", verses)
	}
}

func TestFormatVerses(t *testing.T) {
	var raw any
	_ = json.Unmarshal([]byte(`[{"number":1,"text":"a"},{"number":2,"text":"b"}]`), &raw)
	if got := FormatVerses(Adapt(raw)); got != "1. a\n2. b" {
		t.Errorf("FormatVerses = %q", got)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
