package roadmap

import (
	"fmt"
	"strings"

	"github.com/khoahotran/stdtrack/internal/application/service"
	"github.com/khoahotran/stdtrack/internal/domain/profile"
	"github.com/khoahotran/stdtrack/internal/domain/roadmap"
)

const (
	SkillCourseCount        = 10
	UniversityCount         = 12
	ScholarshipCount        = 10
	JobCount                = 15
	DefaultBatchTemperature = 0.8
)

func str() *service.Schema { return &service.Schema{Type: service.TypeString} }

func object(required []string, props map[string]*service.Schema) *service.Schema {
	return &service.Schema{Type: service.TypeObject, Properties: props, Required: required}
}

func list(items *service.Schema) *service.Schema {
	return &service.Schema{Type: service.TypeArray, Items: items}
}

func stringObject(fields ...string) *service.Schema {
	props := make(map[string]*service.Schema, len(fields))
	for _, f := range fields {
		props[f] = str()
	}
	return object(fields, props)
}

var (
	weeklyPlanSchema = list(object([]string{"week", "tasks"}, map[string]*service.Schema{
		"week":  {Type: service.TypeInteger},
		"tasks": list(stringObject("title", "platform", "duration", "course")),
	}))

	skillSchema = object([]string{"summary", "courses"}, map[string]*service.Schema{
		"summary":            str(),
		"courses":            list(stringObject("title", "url", "platform", "description", "type")),
		"weekly_plan":        weeklyPlanSchema,
		"career_suggestions": list(str()),
	})

	universitySchema = object([]string{"summary", "universities"}, map[string]*service.Schema{
		"summary":      str(),
		"universities": list(stringObject("name", "degree", "location", "description", "website")),
	})

	scholarshipSchema = object([]string{"summary", "scholarships"}, map[string]*service.Schema{
		"summary":      str(),
		"scholarships": list(stringObject("name", "provider", "coverage", "description", "link")),
	})

	jobSchema = object([]string{"summary", "jobs"}, map[string]*service.Schema{
		"summary": str(),
		"jobs":    list(stringObject("title", "company", "location", "description", "link")),
	})
)

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// promptFor returns the instruction and response schema for one mode.
func promptFor(mode roadmap.Mode, p profile.UserProfile) (string, *service.Schema, error) {
	switch mode {
	case roadmap.ModeSkill:
		skills := "no prior"
		if len(p.Skills) > 0 {
			skills = strings.Join(p.Skills, ", ")
		}
		return fmt.Sprintf(
			"Act as a Skill Architect. Create a roadmap for learning %s. Consider my %s level and %s skills. Provide %d specific courses with links.",
			orDefault(p.FirstInterest(), "Web Development"), orDefault(p.Education, "current"), skills, SkillCourseCount,
		), skillSchema, nil
	case roadmap.ModeUniversity:
		return fmt.Sprintf(
			"Act as a University Scout. Suggest %d universities for %s in %s.",
			UniversityCount, orDefault(p.TargetField, "Computer Science"), orDefault(p.Country, "the world"),
		), universitySchema, nil
	case roadmap.ModeScholarship:
		return fmt.Sprintf(
			"Act as a Scholarship Finder. Locate %d global scholarships for students studying %s.",
			ScholarshipCount, orDefault(p.FirstInterest(), "Engineering"),
		), scholarshipSchema, nil
	case roadmap.ModeJob:
		return fmt.Sprintf(
			"Act as a Job Agent. Find %d matching job roles for %q in %s.",
			JobCount, p.TargetJob, orDefault(p.TargetCity, "major tech hubs"),
		), jobSchema, nil
	}
	return "", nil, roadmap.ErrInvalidMode
}
