package interview

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerDecodesEveryShape(t *testing.T) {
	var qa struct {
		Text  Answer `json:"text"`
		Multi Answer `json:"multi"`
		Code  Answer `json:"code"`
		Null  Answer `json:"null"`
	}
	payload := `{"text":"a map","multi":["first","second"],"code":{"code":"fmt.Println(1)","language":"go"},"null":null}`
	require.NoError(t, json.Unmarshal([]byte(payload), &qa))

	assert.Equal(t, Text("a map"), qa.Text)
	assert.Equal(t, MultiAnswer, qa.Multi.Kind)
	assert.Equal(t, []string{"first", "second"}, qa.Multi.Parts)
	require.NotNil(t, qa.Code.Code)
	assert.Equal(t, "go", qa.Code.Code.Language)
	assert.Equal(t, TextAnswer, qa.Null.Kind)
}

func TestAnswerEncodesWireShape(t *testing.T) {
	out, err := json.Marshal([]Answer{Text("x"), Parts("a", "b"), Code("print(1)", "python")})
	require.NoError(t, err)
	assert.JSONEq(t, `["x",["a","b"],{"code":"print(1)","language":"python"}]`, string(out))
}

func TestAnswerRejectsNumbers(t *testing.T) {
	var a Answer
	assert.Error(t, json.Unmarshal([]byte(`42`), &a))
}

func TestAnswerString(t *testing.T) {
	assert.Equal(t, "a\nb", Parts("a", "b").String())
	assert.Contains(t, Code("SELECT 1", "sql").String(), "SELECT 1")
}

func TestCandidateNormalize(t *testing.T) {
	c := Candidate{Name: " Alice ", YearsOfExperience: 3, JobRole: "front-end", Skills: []string{"react", " React ", "", "css"}}
	require.NoError(t, c.Normalize())
	assert.Equal(t, "Alice", c.Name)
	assert.Equal(t, []string{"react", "css"}, c.Skills)
}

func TestCandidateNormalizeRejects(t *testing.T) {
	cases := []Candidate{
		{YearsOfExperience: 1, JobRole: "front-end", Skills: []string{"go"}},
		{Name: "Bob", YearsOfExperience: 51, JobRole: "front-end", Skills: []string{"go"}},
		{Name: "Bob", YearsOfExperience: -1, JobRole: "front-end", Skills: []string{"go"}},
		{Name: "Bob", YearsOfExperience: 1, Skills: []string{"go"}},
		{Name: "Bob", YearsOfExperience: 1, JobRole: "back-end", Skills: []string{" "}},
	}
	for _, c := range cases {
		assert.ErrorIs(t, c.Normalize(), ErrInvalidCandidate)
	}
}
