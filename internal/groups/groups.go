package groups

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Name is a thematic group of contract articles.
type Name string

const (
	Compensation           Name = "Compensation"
	Benefits               Name = "Benefits"
	WorkloadAppointments   Name = "Workload & Appointments"
	RightsProtections      Name = "Rights & Protections"
	UnionRights            Name = "Union Rights"
	ContractAdministration Name = "Contract Administration"
)

// All lists every group in display order.
var All = []Name{
	Compensation,
	Benefits,
	WorkloadAppointments,
	RightsProtections,
	UnionRights,
	ContractAdministration,
}

// ParseName matches s against the known groups, ignoring case.
func ParseName(s string) (Name, error) {
	for _, n := range All {
		if strings.EqualFold(strings.TrimSpace(s), string(n)) {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown group %q", s)
}

// Valid reports whether n is exactly one of the known groups.
func (n Name) Valid() bool {
	for _, g := range All {
		if n == g {
			return true
		}
	}
	return false
}

// UnknownArticleError reports an article with no group assignment. It marks
// a gap in the classification table, not a condition to recover from.
type UnknownArticleError struct {
	Article string
}

func (e *UnknownArticleError) Error() string {
	return fmt.Sprintf("article %q has no group", e.Article)
}

// Classifier maps each article to exactly one group.
type Classifier struct {
	byArticle map[string]Name
}

// New builds a Classifier from group -> articles. An article listed under
// two groups is an error.
func New(members map[Name][]string) (*Classifier, error) {
	for g := range members {
		if !g.Valid() {
			return nil, fmt.Errorf("unknown group %q", g)
		}
	}
	c := &Classifier{byArticle: make(map[string]Name)}
	// Iterate in display order so duplicate errors are deterministic.
	for _, g := range All {
		for _, a := range members[g] {
			if err := c.add(a, g); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Classifier) add(article string, g Name) error {
	article = strings.TrimSpace(article)
	if article == "" {
		return fmt.Errorf("empty article in group %q", g)
	}
	if prev, ok := c.byArticle[article]; ok && prev != g {
		return fmt.Errorf("article %q assigned to both %q and %q", article, prev, g)
	}
	c.byArticle[article] = g
	return nil
}

// Classify returns the group for article, or *UnknownArticleError.
func (c *Classifier) Classify(article string) (Name, error) {
	if g, ok := c.byArticle[article]; ok {
		return g, nil
	}
	return "", &UnknownArticleError{Article: article}
}

// Articles returns the articles assigned to g, sorted.
func (c *Classifier) Articles(g Name) []string {
	var out []string
	for a, ag := range c.byArticle {
		if ag == g {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of classified articles.
func (c *Classifier) Len() int { return len(c.byArticle) }

// Default returns the built-in classification.
func Default() *Classifier {
	c, err := New(defaultMembers)
	if err != nil {
		panic(err) // static table
	}
	return c
}

var defaultMembers = map[Name][]string{
	Compensation: {
		"Salary",
		"Stipends",
		"Summer Funding",
		"Fees",
		"Travel and Conference Funding",
		"Transportation",
	},
	Benefits: {
		"Health Benefits",
		"Dental and Vision",
		"Childcare",
		"Leaves of Absence",
		"Holidays and Time Off",
	},
	WorkloadAppointments: {
		"Workload",
		"Appointments",
		"Training",
		"Workspace and Materials",
		"Health and Safety",
	},
	RightsProtections: {
		"Non-Discrimination",
		"Harassment",
		"International Workers",
		"Discipline and Discharge",
		"Personnel Files",
		"Grievance and Arbitration",
	},
	UnionRights: {
		"Recognition",
		"Union Security",
		"Union Access",
		"Dues Checkoff",
		"Labor-Management Committee",
	},
	ContractAdministration: {
		"Management Rights",
		"No Strike/No Lockout",
		"Savings and Separability",
		"Duration",
		"Entire Agreement",
	},
}

type fileFormat struct {
	// Extend merges the file into the built-in table instead of replacing it.
	Extend bool                `yaml:"extend"`
	Groups map[string][]string `yaml:"groups"`
}

// LoadFile reads a YAML classification:
//
//	extend: true
//	groups:
//	  Compensation: [Salary, Summer Funding]
func LoadFile(path string) (*Classifier, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read groups: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse groups %s: %w", path, err)
	}

	members := make(map[Name][]string)
	for raw, as := range f.Groups {
		g, err := ParseName(raw)
		if err != nil {
			return nil, fmt.Errorf("groups %s: %w", path, err)
		}
		members[g] = append(members[g], as...)
	}
	c, err := New(members)
	if err != nil {
		return nil, fmt.Errorf("groups %s: %w", path, err)
	}
	if !f.Extend {
		return c, nil
	}

	// Built-in articles fill in what the file does not assign.
	for g, as := range defaultMembers {
		for _, a := range as {
			if _, ok := c.byArticle[a]; !ok {
				c.byArticle[a] = g
			}
		}
	}
	return c, nil
}
