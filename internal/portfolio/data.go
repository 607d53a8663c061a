package portfolio

import "encoding/json"

// Kind 是 section 的类型。已知类型是一个封闭集合。
type Kind string

const (
	KindHero       Kind = "hero"
	KindAbout      Kind = "about"
	KindSkills     Kind = "skills"
	KindProjects   Kind = "projects"
	KindExperience Kind = "experience"
	KindEducation  Kind = "education"
	KindContact    Kind = "contact"
	KindInterests  Kind = "interests"
	KindLinks      Kind = "custom-link-block"
)

// Kinds 返回全部已知类型。
func Kinds() []Kind {
	return []Kind{
		KindHero, KindAbout, KindSkills, KindProjects, KindExperience,
		KindEducation, KindContact, KindInterests, KindLinks,
	}
}

// Known 判断是否为已知类型。
func (k Kind) Known() bool {
	_, ok := newData(k)
	return ok
}

// Data 是 section 的负载，每种已知类型对应一个实现。
// 接口包含未导出方法，外部包无法新增实现。
type Data interface {
	Kind() Kind
	Accept(v Visitor)
	sealed()
}

// Visitor 对每种负载提供一个处理方法。新增类型时需要同时扩展 Visitor，
// 所有实现因此都会在编译期被要求处理新类型。
type Visitor interface {
	Hero(HeroData)
	About(AboutData)
	Skills(SkillsData)
	Projects(ProjectsData)
	Experience(ExperienceData)
	Education(EducationData)
	Contact(ContactData)
	Interests(InterestsData)
	Links(LinksData)
	Raw(RawData)
}

// Link 是带标签的外部链接。
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// CTA 是 hero 中的行动按钮。
type CTA struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type HeroData struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	CTA         *CTA   `json:"cta,omitempty"`
}

type AboutData struct {
	Heading  string `json:"heading,omitempty"`
	Bio      string `json:"bio"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Skill 的 Level 取值 0-100，0 表示不展示进度。
type Skill struct {
	Name  string `json:"name"`
	Level int    `json:"level,omitempty"`
}

type SkillGroup struct {
	Category string  `json:"category,omitempty"`
	Skills   []Skill `json:"skills"`
}

type SkillsData struct {
	Heading string       `json:"heading,omitempty"`
	Groups  []SkillGroup `json:"groups"`
}

type Project struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Links        []Link   `json:"links,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
}

type ProjectsData struct {
	Heading  string    `json:"heading,omitempty"`
	Projects []Project `json:"projects"`
}

type Role struct {
	Company     string   `json:"company"`
	Title       string   `json:"title"`
	Period      string   `json:"period,omitempty"`
	Location    string   `json:"location,omitempty"`
	Description string   `json:"description,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
}

type ExperienceData struct {
	Heading string `json:"heading,omitempty"`
	Roles   []Role `json:"roles"`
}

type School struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	Period      string `json:"period,omitempty"`
}

type EducationData struct {
	Heading string   `json:"heading,omitempty"`
	Schools []School `json:"schools"`
}

type ContactData struct {
	Heading  string `json:"heading,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Socials  []Link `json:"socials,omitempty"`
}

type InterestsData struct {
	Heading   string   `json:"heading,omitempty"`
	Interests []string `json:"interests"`
}

type LinksData struct {
	Heading string `json:"heading,omitempty"`
	Links   []Link `json:"links"`
}

// RawData 保存无法按类型解码的负载：未知类型，或已知类型但结构不符。
// Problem 为空表示未知类型。原始 JSON 原样往返。
type RawData struct {
	Type    Kind            `json:"-"`
	Payload json.RawMessage `json:"-"`
	Problem string          `json:"-"`
}

func (HeroData) Kind() Kind       { return KindHero }
func (AboutData) Kind() Kind      { return KindAbout }
func (SkillsData) Kind() Kind     { return KindSkills }
func (ProjectsData) Kind() Kind   { return KindProjects }
func (ExperienceData) Kind() Kind { return KindExperience }
func (EducationData) Kind() Kind  { return KindEducation }
func (ContactData) Kind() Kind    { return KindContact }
func (InterestsData) Kind() Kind  { return KindInterests }
func (LinksData) Kind() Kind      { return KindLinks }
func (d RawData) Kind() Kind      { return d.Type }

func (d HeroData) Accept(v Visitor)       { v.Hero(d) }
func (d AboutData) Accept(v Visitor)      { v.About(d) }
func (d SkillsData) Accept(v Visitor)     { v.Skills(d) }
func (d ProjectsData) Accept(v Visitor)   { v.Projects(d) }
func (d ExperienceData) Accept(v Visitor) { v.Experience(d) }
func (d EducationData) Accept(v Visitor)  { v.Education(d) }
func (d ContactData) Accept(v Visitor)    { v.Contact(d) }
func (d InterestsData) Accept(v Visitor)  { v.Interests(d) }
func (d LinksData) Accept(v Visitor)      { v.Links(d) }
func (d RawData) Accept(v Visitor)        { v.Raw(d) }

func (HeroData) sealed()       {}
func (AboutData) sealed()      {}
func (SkillsData) sealed()     {}
func (ProjectsData) sealed()   {}
func (ExperienceData) sealed() {}
func (EducationData) sealed()  {}
func (ContactData) sealed()    {}
func (InterestsData) sealed()  {}
func (LinksData) sealed()      {}
func (RawData) sealed()        {}

// Malformed 判断负载是否为已知类型但结构不符。
func (d RawData) Malformed() bool {
	return d.Problem != ""
}

// newData 返回 kind 对应负载的零值指针，供解码使用。
func newData(k Kind) (any, bool) {
	switch k {
	case KindHero:
		return &HeroData{}, true
	case KindAbout:
		return &AboutData{}, true
	case KindSkills:
		return &SkillsData{}, true
	case KindProjects:
		return &ProjectsData{}, true
	case KindExperience:
		return &ExperienceData{}, true
	case KindEducation:
		return &EducationData{}, true
	case KindContact:
		return &ContactData{}, true
	case KindInterests:
		return &InterestsData{}, true
	case KindLinks:
		return &LinksData{}, true
	default:
		return nil, false
	}
}

// deref 把 newData 返回的指针转回值类型的 Data。
func deref(p any) Data {
	switch v := p.(type) {
	case *HeroData:
		return *v
	case *AboutData:
		return *v
	case *SkillsData:
		return *v
	case *ProjectsData:
		return *v
	case *ExperienceData:
		return *v
	case *EducationData:
		return *v
	case *ContactData:
		return *v
	case *InterestsData:
		return *v
	case *LinksData:
		return *v
	default:
		return nil
	}
}
