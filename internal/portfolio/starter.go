package portfolio

// DefaultTitle 是新作品集的默认标题。
const DefaultTitle = "My Portfolio"

// NewStarter 创建带有示例内容的文档，供首次编辑时使用。
func NewStarter(slug, themeID string) *Document {
	d := New(slug, themeID)
	for _, data := range starterSections() {
		d.AddSection(NewSection(data))
	}
	return d
}

func starterSections() []Data {
	return []Data{
		HeroData{
			Title:       "Your Name",
			Subtitle:    "Your role or headline",
			Description: "One or two sentences about what you do and what you care about.",
			CTA:         &CTA{Label: "Get in touch", URL: "#contact"},
		},
		AboutData{
			Heading: "About",
			Bio:     "Tell visitors who you are, how you work and what you are looking for.",
		},
		SkillsData{
			Heading: "Skills",
			Groups: []SkillGroup{
				{Category: "Core", Skills: []Skill{{Name: "Skill one"}, {Name: "Skill two"}, {Name: "Skill three"}}},
			},
		},
		ProjectsData{
			Heading: "Projects",
			Projects: []Project{
				{
					Title:        "Project title",
					Description:  "What it is, your part in it and the outcome.",
					Technologies: []string{"Go", "PostgreSQL"},
				},
			},
		},
		ContactData{
			Heading: "Contact",
			Email:   "hello@example.com",
		},
	}
}
