package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phFolio/internal/errcode"
	"phFolio/internal/portfolio"
	"phFolio/internal/theme"
)

func sampleDoc() *portfolio.Document {
	d := portfolio.New("jane", "")
	d.AddSection(portfolio.NewSection(portfolio.HeroData{Title: "Jane", CTA: &portfolio.CTA{Label: "Hi", URL: "#contact"}}))
	d.AddSection(portfolio.NewSection(portfolio.ProjectsData{Projects: []portfolio.Project{
		{Title: "A", Technologies: []string{"Go"}},
		{Title: "B"},
		{Title: "C"},
		{Title: "D"},
	}}))
	d.AddSection(portfolio.NewSection(portfolio.ContactData{Email: "jane@example.com"}))
	return d
}

func TestRenderUnknownSectionIsPlaceholder(t *testing.T) {
	raw := `{"id":"d","slug":"x","themeId":"default","sections":[
		{"id":"h","type":"hero","order":0,"data":{"title":"Hello"}},
		{"id":"t","type":"timeline","order":1,"data":{"events":[]}},
		{"id":"a","type":"about","order":2,"data":{"bio":"Me"}}
	]}`
	doc, err := portfolio.Decode([]byte(raw))
	require.NoError(t, err)

	r := NewRenderer(nil)
	var nodes []Node
	require.NotPanics(t, func() { nodes = r.Render(doc, Desktop) })

	require.Len(t, nodes, 3)
	assert.Equal(t, NodeSection, nodes[0].Type)
	assert.True(t, nodes[1].IsPlaceholder())
	require.NotNil(t, nodes[1].Diagnostic)
	assert.Equal(t, errcode.UnknownSection, nodes[1].Diagnostic.Code)
	assert.Equal(t, portfolio.ID("t"), nodes[1].SectionID)
	assert.Equal(t, NodeSection, nodes[2].Type)
	assert.Equal(t, 1, CountPlaceholders(nodes))
}

func TestRenderMalformedSectionIsPlaceholder(t *testing.T) {
	raw := `{"id":"d","slug":"x","sections":[
		{"id":"p","type":"projects","order":0,"data":{"projects":"nope"}},
		{"id":"h","type":"hero","order":1}
	]}`
	doc, err := portfolio.Decode([]byte(raw))
	require.NoError(t, err)

	nodes := NewRenderer(nil).Render(doc, Mobile)
	require.Len(t, nodes, 2)
	for _, n := range nodes {
		require.True(t, n.IsPlaceholder())
		assert.Equal(t, errcode.MalformedSection, n.Diagnostic.Code)
	}
}

func TestRenderMismatchedDataIsPlaceholder(t *testing.T) {
	doc := portfolio.New("x", "")
	doc.AddSection(portfolio.Section{Type: portfolio.KindHero, Visible: true, Data: portfolio.AboutData{Bio: "x"}})

	nodes := NewRenderer(nil).Render(doc, Desktop)
	require.Len(t, nodes, 1)
	assert.Equal(t, errcode.MalformedSection, nodes[0].Diagnostic.Code)
}

func TestRenderSkipsInvisibleAndFollowsOrder(t *testing.T) {
	doc := sampleDoc()
	projects := doc.Sections[1].ID
	contact := doc.Sections[2].ID

	require.NoError(t, doc.SetVisible(doc.Sections[0].ID, false))
	require.NoError(t, doc.MoveSection(contact, 0))

	nodes := NewRenderer(nil).Render(doc, Desktop)
	require.Len(t, nodes, 2)
	assert.Equal(t, contact, nodes[0].SectionID)
	assert.Equal(t, projects, nodes[1].SectionID)
}

func TestRenderNilDocument(t *testing.T) {
	assert.Empty(t, NewRenderer(nil).Render(nil, Desktop))
}

func TestViewportChangesLayoutOnly(t *testing.T) {
	doc := sampleDoc()
	r := NewRenderer(nil)

	columns := func(vp Viewport) string {
		nodes := r.Render(doc, vp)
		var cols string
		Walk(nodes[1:2], func(n Node) bool {
			if n.Type == NodeGrid && cols == "" {
				cols = n.Props["columns"]
			}
			return true
		})
		return cols
	}
	assert.Equal(t, "3", columns(Desktop))
	assert.Equal(t, "2", columns(Tablet))
	assert.Equal(t, "", columns(Mobile), "mobile stacks cards")

	texts := func(vp Viewport) []string {
		var out []string
		Walk(r.Render(doc, vp), func(n Node) bool {
			if n.Text != "" {
				out = append(out, n.Text)
			}
			return true
		})
		return out
	}
	if diff := cmp.Diff(texts(Desktop), texts(Mobile)); diff != "" {
		t.Fatalf("content differs between viewports (-desktop +mobile):\n%s", diff)
	}
}

func TestSectionStyleOverrides(t *testing.T) {
	doc := sampleDoc()
	doc.ThemeOverrides = &theme.Overrides{Background: theme.String("#111111")}
	hero := doc.Sections[0].ID
	require.NoError(t, doc.UpdateSection(hero, doc.Sections[0].Data, &theme.Overrides{Background: theme.String("#FF0000")}))

	nodes := NewRenderer(nil).Render(doc, Desktop)
	assert.Equal(t, "#FF0000", nodes[0].Style["background"])
	assert.Equal(t, "#111111", nodes[1].Style["background"])
}

func TestPreviewCollectsDiagnostics(t *testing.T) {
	doc := sampleDoc()
	doc.ThemeID = "nope"
	doc.Sections[2].StyleOverrides = &theme.Overrides{Primary: theme.String("blue")}
	doc.AddSection(portfolio.Section{Type: "timeline", Visible: true, Data: portfolio.RawData{Type: "timeline"}})

	p := NewRenderer(nil).Preview(doc, Tablet)
	assert.Equal(t, theme.DefaultThemeID, p.ThemeID)
	assert.Equal(t, Tablet, p.Profile.Viewport)
	assert.Equal(t, 768, p.Profile.WidthPx)
	assert.Len(t, p.Nodes, 4)
	require.Len(t, p.Diagnostics, 3)
	assert.Contains(t, p.Diagnostics[0], `unknown theme "nope"`)
	assert.Contains(t, p.Diagnostics[1], "invalid primary color")
	assert.Contains(t, p.Diagnostics[2], `"timeline" is not supported`)
	assert.True(t, strings.HasPrefix(p.CSS, ":root{"))

	_, err := json.Marshal(p)
	require.NoError(t, err)
}

func TestRendererMoveSection(t *testing.T) {
	doc := sampleDoc()
	r := NewRenderer(nil)
	last := doc.Sections[2].ID

	require.NoError(t, r.MoveSection(doc, last, 0))
	assert.Equal(t, last, r.Render(doc, Desktop)[0].SectionID)
	assert.ErrorIs(t, r.MoveSection(doc, "missing", 0), portfolio.ErrSectionNotFound)
	assert.ErrorIs(t, r.MoveSection(nil, last, 0), portfolio.ErrSectionNotFound)
}

func TestEveryKnownKindRenders(t *testing.T) {
	doc := portfolio.New("all", "midnight")
	for _, data := range []portfolio.Data{
		portfolio.HeroData{Title: "T", ImageURL: "https://example.com/a.png"},
		portfolio.AboutData{Bio: "b", ImageURL: "https://example.com/b.png"},
		portfolio.SkillsData{Groups: []portfolio.SkillGroup{{Category: "c", Skills: []portfolio.Skill{{Name: "Go", Level: 140}}}}},
		portfolio.ProjectsData{Projects: []portfolio.Project{{Title: "p", Links: []portfolio.Link{{URL: "https://x.dev"}}}}},
		portfolio.ExperienceData{Roles: []portfolio.Role{{Company: "Acme", Title: "Dev", Highlights: []string{"shipped"}}}},
		portfolio.EducationData{Schools: []portfolio.School{{Institution: "Uni", Degree: "BSc", Field: "CS"}}},
		portfolio.ContactData{Email: "a@b.co", Phone: "+1 555 0100", Socials: []portfolio.Link{{Label: "gh", URL: "https://github.com/x"}}},
		portfolio.InterestsData{Interests: []string{"chess", " ", "go"}},
		portfolio.LinksData{Links: []portfolio.Link{{Label: "blog", URL: "https://blog.dev"}, {Label: "empty"}}},
	} {
		doc.AddSection(portfolio.NewSection(data))
	}

	r := NewRenderer(nil)
	for _, vp := range Viewports() {
		nodes := r.Render(doc, vp)
		require.Len(t, nodes, len(portfolio.Kinds()))
		assert.Zero(t, CountPlaceholders(nodes), vp)
		for i, n := range nodes {
			assert.Equal(t, portfolio.Kinds()[i], n.Kind)
		}
	}

	var progress string
	Walk(r.Render(doc, Desktop), func(n Node) bool {
		if n.Type == NodeProgress {
			progress = n.Props["value"]
		}
		return true
	})
	assert.Equal(t, "100", progress)
}

func TestParseViewport(t *testing.T) {
	vp, ok := ParseViewport(" Mobile ")
	assert.True(t, ok)
	assert.Equal(t, Mobile, vp)

	_, ok = ParseViewport("watch")
	assert.False(t, ok)
	assert.Equal(t, Desktop, ProfileFor("watch").Viewport)
}

func TestWriteHTML(t *testing.T) {
	doc := sampleDoc()
	doc.AddSection(portfolio.NewSection(portfolio.LinksData{Links: []portfolio.Link{
		{Label: "<b>bold</b>", URL: "javascript:alert(1)"},
	}}))
	doc.AddSection(portfolio.Section{ID: "legacy", Type: "timeline", Visible: true, Data: portfolio.RawData{Type: "timeline"}})

	out, err := HTML(NewRenderer(nil).Preview(doc, Mobile))
	require.NoError(t, err)

	assert.Contains(t, out, `<body data-viewport="mobile" data-frame="phone">`)
	assert.Contains(t, out, "width:375px")
	assert.Contains(t, out, "--color-primary:#3B82F6;")
	assert.Contains(t, out, `<h1 style=`)
	assert.Contains(t, out, `href="mailto:jane@example.com"`)
	assert.Contains(t, out, `data-section="legacy" data-code="4220"`)
	assert.Contains(t, out, "&lt;b&gt;bold&lt;/b&gt;")
	assert.NotContains(t, out, "javascript:alert")
}
