package model

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestAnswerUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantList bool
		wantText string
		wantErr  bool
	}{
		{name: "string", input: `"Good"`, wantText: "Good"},
		{name: "list", input: `["Red","Blue"]`, wantList: true, wantText: "Red, Blue"},
		{name: "empty list", input: `[]`, wantList: true, wantText: ""},
		{name: "null", input: `null`, wantText: ""},
		{name: "number", input: `3`, wantErr: true},
		{name: "mixed list", input: `["a",1]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Answer
			err := json.Unmarshal([]byte(tt.input), &a)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if a.IsList() != tt.wantList || a.Text() != tt.wantText {
				t.Errorf("got list=%v text=%q", a.IsList(), a.Text())
			}
		})
	}
}

func TestAnswerMarshalKeepsShape(t *testing.T) {
	answers := map[string]Answer{
		"q1": TextAnswer("A"),
		"q2": ListAnswer("X"),
		"q3": ListAnswer(),
	}
	data, err := json.Marshal(answers)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"q1":"A","q2":["X"],"q3":[]}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestAnswerBSON(t *testing.T) {
	type doc struct {
		Answers map[string]Answer `bson:"answers"`
	}
	in := doc{Answers: map[string]Answer{"q1": TextAnswer("A"), "q2": ListAnswer("X", "Y")}}

	data, err := bson.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out doc
	if err := bson.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if a := out.Answers["q1"]; a.IsList() || a.Text() != "A" {
		t.Errorf("q1 = %+v", a)
	}
	if a := out.Answers["q2"]; !a.IsList() || len(a.Values()) != 2 {
		t.Errorf("q2 = %+v", a)
	}
}

func TestAnswerIsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		answer Answer
		want   bool
	}{
		{name: "zero", answer: Answer{}, want: true},
		{name: "blank text", answer: TextAnswer("  "), want: true},
		{name: "empty list", answer: ListAnswer(), want: true},
		{name: "list of blanks", answer: ListAnswer("", " "), want: true},
		{name: "text", answer: TextAnswer("ok"), want: false},
		{name: "list", answer: ListAnswer("", "A"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.answer.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuestionMatchOption(t *testing.T) {
	q := Question{Type: QuestionSingleChoice, Options: []string{"Very good", "Bad"}}
	if got, ok := q.MatchOption("  VERY good"); !ok || got != "Very good" {
		t.Errorf("MatchOption = %q, %v", got, ok)
	}
	if _, ok := q.MatchOption("so-so"); ok {
		t.Error("unexpected match")
	}
}
