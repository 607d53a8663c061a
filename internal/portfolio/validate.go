package portfolio

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate 在文档入库前做结构校验（入口校验，渲染路径不依赖它）。
// 未知类型与结构不符的负载不算错误，渲染时会退化为占位节点。
func (d Document) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Slug,
			validation.Required.Error("slug is required"),
			validation.Length(1, 120),
			validation.Match(slugPattern).Error("slug must be lowercase letters, digits and single hyphens"),
		),
		validation.Field(&d.ThemeID, validation.Length(0, 64)),
		validation.Field(&d.Sections, validation.By(uniqueSectionIDs)),
	)
}

// Validate 校验单个 section 的基本字段。
func (s Section) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ID, validation.Required.Error("section id is required")),
		validation.Field(&s.Type,
			validation.Required.Error("section type is required"),
			validation.Length(1, 64),
		),
		validation.Field(&s.Order, validation.Min(0)),
		validation.Field(&s.Data, validation.By(validLinks)),
	)
}

func uniqueSectionIDs(value interface{}) error {
	sections, _ := value.([]Section)
	seen := make(map[ID]struct{}, len(sections))
	for _, s := range sections {
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("duplicate section id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// validLinks 要求负载中出现的链接为合法 URL（页内锚点与 mailto 除外）。
func validLinks(value interface{}) error {
	var links []Link
	switch d := value.(type) {
	case ProjectsData:
		for _, p := range d.Projects {
			links = append(links, p.Links...)
		}
	case ContactData:
		links = d.Socials
		if d.Email != "" {
			if err := is.EmailFormat.Validate(d.Email); err != nil {
				return fmt.Errorf("email: %w", err)
			}
		}
	case LinksData:
		links = d.Links
	case HeroData:
		if d.CTA != nil {
			links = append(links, Link{Label: d.CTA.Label, URL: d.CTA.URL})
		}
	}

	var errs []error
	for _, l := range links {
		if l.URL == "" || strings.HasPrefix(l.URL, "#") || strings.HasPrefix(l.URL, "mailto:") {
			continue
		}
		if err := is.URL.Validate(l.URL); err != nil {
			errs = append(errs, fmt.Errorf("link %q: %w", l.Label, err))
		}
	}
	return errors.Join(errs...)
}
