package interview

import (
	"errors"
	"fmt"
	"strings"
)

// MaxYearsOfExperience bounds the candidate profile.
const MaxYearsOfExperience = 50

// ErrInvalidCandidate wraps every profile validation failure.
var ErrInvalidCandidate = errors.New("invalid candidate")

// Candidate is the profile sent with initial-setup.
type Candidate struct {
	Name              string   `json:"name"`
	YearsOfExperience int      `json:"yearsOfExperience"`
	JobRole           string   `json:"jobRole"`
	Skills            []string `json:"skills"`
	UserID            string   `json:"userId,omitempty"`
}

// Normalize trims fields, de-duplicates skills and validates the profile.
func (c *Candidate) Normalize() error {
	c.Name = strings.TrimSpace(c.Name)
	c.JobRole = strings.TrimSpace(c.JobRole)
	c.UserID = strings.TrimSpace(c.UserID)

	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCandidate)
	}
	if c.YearsOfExperience < 0 || c.YearsOfExperience > MaxYearsOfExperience {
		return fmt.Errorf("%w: yearsOfExperience must be between 0 and %d", ErrInvalidCandidate, MaxYearsOfExperience)
	}
	if c.JobRole == "" {
		return fmt.Errorf("%w: jobRole is required", ErrInvalidCandidate)
	}

	seen := make(map[string]struct{}, len(c.Skills))
	skills := make([]string, 0, len(c.Skills))
	for _, skill := range c.Skills {
		skill = strings.TrimSpace(skill)
		key := strings.ToLower(skill)
		if skill == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		skills = append(skills, skill)
	}
	if len(skills) == 0 {
		return fmt.Errorf("%w: at least one skill is required", ErrInvalidCandidate)
	}
	c.Skills = skills
	return nil
}
