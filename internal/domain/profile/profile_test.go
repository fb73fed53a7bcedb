package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchOf_KeepsFieldsAbsentFromPatch(t *testing.T) {
	p := UserProfile{Name: "Lan", Age: 21, Country: "Vietnam", Interests: []string{"Go"}}

	PatchOf(UserProfile{TargetJob: "Backend Engineer", Age: 22}).Apply(&p)

	assert.Equal(t, "Lan", p.Name)
	assert.Equal(t, 22, p.Age)
	assert.Equal(t, "Vietnam", p.Country)
	assert.Equal(t, []string{"Go"}, p.Interests)
	assert.Equal(t, "Backend Engineer", p.TargetJob)
}

func TestFirstInterest(t *testing.T) {
	var nilProfile *UserProfile
	assert.Equal(t, "", nilProfile.FirstInterest())
	assert.Equal(t, "Flutter", (&UserProfile{Interests: []string{"Flutter", "Dart"}}).FirstInterest())
}

func TestPatch_ExplicitEmptyValuesClear(t *testing.T) {
	p := UserProfile{Name: "Lan", TargetJob: "Backend Engineer", Skills: []string{"Go"}, Age: 21}

	var pt Patch
	require.NoError(t, json.Unmarshal([]byte(`{"targetJob":"","skills":[],"age":0}`), &pt))
	assert.True(t, pt.Has("targetJob"))
	assert.False(t, pt.Has("name"))

	pt.Apply(&p)
	assert.Equal(t, "Lan", p.Name)
	assert.Empty(t, p.TargetJob)
	assert.Empty(t, p.Skills)
	assert.Zero(t, p.Age)

	assert.Equal(t, map[string]any{"targetJob": "", "skills": []string{}, "age": 0}, pt.Document())
}

func TestPatch_NullClears(t *testing.T) {
	p := UserProfile{Country: "Vietnam", Interests: []string{"AI"}}

	var pt Patch
	require.NoError(t, json.Unmarshal([]byte(`{"country":null,"interests":null}`), &pt))
	pt.Apply(&p)

	assert.Empty(t, p.Country)
	assert.Empty(t, p.Interests)
}

func TestNormalize_TrimsAndKeepsPresentLists(t *testing.T) {
	n := UserProfile{TargetJob: "  SRE ", Interests: []string{" ", "Go "}, Skills: []string{"  "}}.Normalize()

	assert.Equal(t, "SRE", n.TargetJob)
	assert.Equal(t, []string{"Go"}, n.Interests)
	assert.NotNil(t, n.Skills)
	assert.Empty(t, n.Skills)
}
