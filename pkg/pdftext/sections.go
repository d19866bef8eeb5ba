package pdftext

import (
	"regexp"
	"strings"

	"github.com/mayank-dotcom/career-bot/pkg/domain"
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})`)
)

type sectionHeader struct {
	name     string
	keywords []string
}

// Checked in order; the first match wins, so "summary of experience" is a summary header.
var sectionHeaders = []sectionHeader{
	{"summary", []string{"summary", "objective", "profile"}},
	{"experience", []string{"experience", "work history", "employment"}},
	{"education", []string{"education", "academic"}},
	{"skills", []string{"skills", "competencies"}},
	{"projects", []string{"projects", "portfolio"}},
	{"certifications", []string{"certification", "certificates"}},
}

// ExtractResumeSections splits resume text into common sections. Contact
// lists every email address and phone number found anywhere in the text.
// A header line starts a new section; later headers of the same kind replace
// earlier content.
func ExtractResumeSections(text string) domain.ResumeSections {
	var sections domain.ResumeSections

	var contact strings.Builder
	if emails := emailPattern.FindAllString(text, -1); len(emails) > 0 {
		contact.WriteString("Email: " + strings.Join(emails, ", ") + "\n")
	}
	if phones := phonePattern.FindAllString(text, -1); len(phones) > 0 {
		contact.WriteString("Phone: " + strings.Join(phones, ", ") + "\n")
	}
	sections.Contact = contact.String()

	current := ""
	var body strings.Builder
	flush := func() {
		if current == "" || body.Len() == 0 {
			return
		}
		assignSection(&sections, current, strings.TrimSpace(body.String()))
	}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if name := matchHeader(strings.ToLower(line)); name != "" {
			flush()
			current = name
			body.Reset()
			continue
		}
		if current != "" {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	flush()
	return sections
}

func matchHeader(lower string) string {
	for _, h := range sectionHeaders {
		for _, kw := range h.keywords {
			if strings.Contains(lower, kw) {
				return h.name
			}
		}
	}
	return ""
}

func assignSection(s *domain.ResumeSections, name, content string) {
	switch name {
	case "summary":
		s.Summary = content
	case "experience":
		s.Experience = content
	case "education":
		s.Education = content
	case "skills":
		s.Skills = content
	case "projects":
		s.Projects = content
	case "certifications":
		s.Certifications = content
	}
}
