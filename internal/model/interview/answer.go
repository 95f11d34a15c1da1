package interview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AnswerKind identifies which answer capability was used.
type AnswerKind string

const (
	TextAnswer  AnswerKind = "text"
	MultiAnswer AnswerKind = "multi"
	CodeAnswer  AnswerKind = "code"
)

// CodeSubmission is an answer written in the code editor.
type CodeSubmission struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Answer is a plain string, a list of strings, or a code submission on the wire.
type Answer struct {
	Kind  AnswerKind
	Text  string
	Parts []string
	Code  *CodeSubmission
}

// Text builds a plain-text answer.
func Text(s string) Answer { return Answer{Kind: TextAnswer, Text: s} }

// Parts builds a multi-part answer.
func Parts(parts ...string) Answer { return Answer{Kind: MultiAnswer, Parts: parts} }

// Code builds a code submission answer.
func Code(code, language string) Answer {
	return Answer{Kind: CodeAnswer, Code: &CodeSubmission{Code: code, Language: language}}
}

// MarshalJSON 按答案类型输出字符串、字符串数组或 {code, language}。
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case MultiAnswer:
		parts := a.Parts
		if parts == nil {
			parts = []string{}
		}
		return json.Marshal(parts)
	case CodeAnswer:
		code := a.Code
		if code == nil {
			code = &CodeSubmission{}
		}
		return json.Marshal(code)
	default:
		return json.Marshal(a.Text)
	}
}

// UnmarshalJSON 根据首字符判断答案类型。
func (a *Answer) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = Text("")
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*a = Text(s)
	case '[':
		var parts []string
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return fmt.Errorf("multi-part answer: %w", err)
		}
		*a = Parts(parts...)
	case '{':
		var code CodeSubmission
		if err := json.Unmarshal(trimmed, &code); err != nil {
			return fmt.Errorf("code answer: %w", err)
		}
		*a = Code(code.Code, code.Language)
	default:
		return fmt.Errorf("unsupported answer payload %q", string(trimmed))
	}
	return nil
}

// String flattens the answer for prompts and logs.
func (a Answer) String() string {
	switch a.Kind {
	case MultiAnswer:
		return strings.Join(a.Parts, "\n")
	case CodeAnswer:
		if a.Code == nil {
			return ""
		}
		return fmt.Sprintf("```%s\n%s\n```", a.Code.Language, a.Code.Code)
	default:
		return a.Text
	}
}

// Clone returns a copy that shares no slices or pointers with a.
func (a Answer) Clone() Answer {
	out := a
	if a.Parts != nil {
		out.Parts = append([]string(nil), a.Parts...)
	}
	if a.Code != nil {
		code := *a.Code
		out.Code = &code
	}
	return out
}
