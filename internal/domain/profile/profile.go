package profile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	EducationHighSchool = "High School"
	EducationBachelor   = "Bachelor's Degree"
	EducationMaster     = "Master's Degree"
	EducationPhD        = "PhD"
)

// UserProfile is the durable set of attributes a roadmap is generated from.
type UserProfile struct {
	Name          string    `json:"name,omitempty"`
	Age           int       `json:"age,omitempty"`
	Education     string    `json:"education,omitempty"`
	Country       string    `json:"country,omitempty"`
	Skills        []string  `json:"skills,omitempty"`
	Interests     []string  `json:"interests,omitempty"`
	TargetField   string    `json:"targetField,omitempty"`
	TargetCountry string    `json:"targetCountry,omitempty"`
	TargetCity    string    `json:"targetCity,omitempty"`
	TargetJob     string    `json:"targetJob,omitempty"`
	Language      string    `json:"language,omitempty"`
	FullName      string    `json:"fullName,omitempty"`
	Username      string    `json:"username,omitempty"`
	Email         string    `json:"email,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitzero"`
}

var ErrProfileNotFound = errors.New("profile not found")

// FirstInterest returns the leading interest or "" when none are set.
func (p *UserProfile) FirstInterest() string {
	if p == nil || len(p.Interests) == 0 {
		return ""
	}
	return p.Interests[0]
}

// Normalize trims every string and drops blank list entries. A list that
// was present stays non-nil so an empty list still clears the stored one.
func (p UserProfile) Normalize() UserProfile {
	for _, s := range []*string{
		&p.Name, &p.Education, &p.Country, &p.TargetField, &p.TargetCountry,
		&p.TargetCity, &p.TargetJob, &p.Language, &p.FullName, &p.Username, &p.Email,
	} {
		*s = strings.TrimSpace(*s)
	}
	p.Skills = compact(p.Skills)
	p.Interests = compact(p.Interests)
	return p
}

func compact(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Patch is a partial profile update. Keys named in Set overwrite the stored
// value even when the new value is empty; every other field is kept.
type Patch struct {
	Values UserProfile
	Set    map[string]bool
}

// PatchOf sets the non-zero fields of p.
func PatchOf(p UserProfile) Patch {
	pt := Patch{Values: p, Set: make(map[string]bool)}
	for key, ref := range fieldRefs(&pt.Values) {
		switch v := ref.(type) {
		case *string:
			pt.Set[key] = *v != ""
		case *int:
			pt.Set[key] = *v != 0
		case *[]string:
			pt.Set[key] = *v != nil
		}
	}
	return pt
}

// UnmarshalJSON records which profile keys the document carries, so that
// {"targetJob": ""} clears the field while a missing key leaves it alone.
func (pt *Patch) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	var values UserProfile
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	pt.Values = values
	pt.Set = make(map[string]bool, len(keys))
	for key := range fieldRefs(&values) {
		if _, ok := keys[key]; ok {
			pt.Set[key] = true
		}
	}
	return nil
}

func (pt Patch) Has(key string) bool { return pt.Set[key] }

// Normalize returns the patch with its values normalized.
func (pt Patch) Normalize() Patch {
	pt.Values = pt.Values.Normalize()
	return pt
}

// Apply writes the set fields onto dst.
func (pt Patch) Apply(dst *UserProfile) {
	src := fieldRefs(&pt.Values)
	for key, ref := range fieldRefs(dst) {
		if !pt.Set[key] {
			continue
		}
		switch d := ref.(type) {
		case *string:
			*d = *src[key].(*string)
		case *int:
			*d = *src[key].(*int)
		case *[]string:
			*d = append([]string(nil), *src[key].(*[]string)...)
		}
	}
}

// Document returns the set fields keyed by their JSON names, empty values
// included, ready to be merged into a stored JSON document.
func (pt Patch) Document() map[string]any {
	doc := make(map[string]any, len(pt.Set))
	for key, ref := range fieldRefs(&pt.Values) {
		if !pt.Set[key] {
			continue
		}
		switch v := ref.(type) {
		case *string:
			doc[key] = *v
		case *int:
			doc[key] = *v
		case *[]string:
			if *v == nil {
				doc[key] = []string{}
			} else {
				doc[key] = *v
			}
		}
	}
	return doc
}

func fieldRefs(p *UserProfile) map[string]any {
	return map[string]any{
		"name":          &p.Name,
		"age":           &p.Age,
		"education":     &p.Education,
		"country":       &p.Country,
		"skills":        &p.Skills,
		"interests":     &p.Interests,
		"targetField":   &p.TargetField,
		"targetCountry": &p.TargetCountry,
		"targetCity":    &p.TargetCity,
		"targetJob":     &p.TargetJob,
		"language":      &p.Language,
		"fullName":      &p.FullName,
		"username":      &p.Username,
		"email":         &p.Email,
	}
}

type Repository interface {
	// GetByUserID returns ErrProfileNotFound when the user never saved one.
	GetByUserID(ctx context.Context, ownerID uuid.UUID) (*UserProfile, error)
	// Merge writes the set fields of patch onto the stored record and
	// returns the merged result.
	Merge(ctx context.Context, ownerID uuid.UUID, patch Patch) (*UserProfile, error)
}
